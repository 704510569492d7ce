package client

import (
	"testing"

	"github.com/rs/zerolog"

	"hardmode/server/internal/deltasync"
	"hardmode/server/internal/entity"
	"hardmode/server/internal/protocol"
	"hardmode/server/internal/sim"
)

func testParams() sim.MoveParams {
	return sim.MoveParams{
		Speed:          5,
		Radius:         14,
		Width:          2400,
		Height:         2400,
		BackwardFactor: 0.5,
		StrafeFactor:   0.75,
	}
}

func TestSequencerNumbersFromOne(t *testing.T) {
	s := NewSequencer()
	if in := s.Add([]string{"d"}, "", 0.016); in.Seq != 1 {
		t.Fatalf("expected first seq 1, got %d", in.Seq)
	}
	if in := s.Add([]string{"d"}, "", 0.016); in.Seq != 2 {
		t.Fatalf("expected second seq 2, got %d", in.Seq)
	}
}

func TestSequencerAckDiscardsProcessed(t *testing.T) {
	s := NewSequencer()
	for i := 0; i < 10; i++ {
		s.Add([]string{"d"}, "", 0.016)
	}
	s.Ack(7)
	pending := s.Pending()
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending after ack, got %d", len(pending))
	}
	if pending[0].Seq != 8 {
		t.Fatalf("expected replay to start at seq 8, got %d", pending[0].Seq)
	}
	// Re-acking an older cursor must not resurrect anything.
	s.Ack(5)
	if s.Len() != 3 {
		t.Fatalf("expected ack to be monotonic in effect, got %d pending", s.Len())
	}
}

func TestSequencerRetentionBound(t *testing.T) {
	s := NewSequencer()
	for i := 0; i < DefaultRetention+50; i++ {
		s.Add([]string{"d"}, "", 0.016)
	}
	if s.Len() != DefaultRetention {
		t.Fatalf("expected retention bound %d, got %d", DefaultRetention, s.Len())
	}
	pending := s.Pending()
	if pending[len(pending)-1].Seq != uint64(DefaultRetention+50) {
		t.Fatalf("expected newest input retained")
	}
}

func TestPredictionMatchesServerStep(t *testing.T) {
	params := testParams()
	pred := NewPredictor(params, nil)
	seq := NewSequencer()

	// Client predicts ten samples locally.
	x, y := 100.0, 100.0
	var facing entity.Facing
	inputs := make([]PendingInput, 0, 10)
	for i := 0; i < 10; i++ {
		in := seq.Add([]string{"d", "s"}, "", 0.016)
		inputs = append(inputs, in)
		x, y, facing = pred.Apply(x, y, in)
	}

	// The server runs the same samples through the same step.
	sx, sy := 100.0, 100.0
	var sf entity.Facing
	for _, in := range inputs {
		move := sim.MoveInput{Keys: in.Keys, Facing: in.Facing, Dt: in.Dt}
		sx, sy, sf = sim.Step(sx, sy, move, params, nil)
	}

	if x != sx || y != sy || facing != sf {
		t.Fatalf("expected identical results, client (%f,%f,%s) server (%f,%f,%s)",
			x, y, facing, sx, sy, sf)
	}
}

func TestReconcileReplaysUnacknowledged(t *testing.T) {
	params := testParams()
	pred := NewPredictor(params, nil)
	seq := NewSequencer()
	rec := NewReconciler(seq, pred, zerolog.Nop())

	// Six samples east; the server has processed four of them.
	x, y := 100.0, 100.0
	var facing entity.Facing
	for i := 0; i < 6; i++ {
		in := seq.Add([]string{"d"}, "", 0.1)
		x, y, facing = pred.Apply(x, y, in)
	}
	// Each sample is 5 * 0.1 * 60 = 30 units.
	if x != 280 {
		t.Fatalf("expected prediction at x=280, got %f", x)
	}

	authX, authY := 220.0, 100.0 // four samples applied server-side
	gotX, gotY, gotF := rec.Reconcile(x, y, authX, authY, entity.FacingRight, 4)

	if gotX != 280 || gotY != 100 {
		t.Fatalf("expected replayed position (280,100), got (%f,%f)", gotX, gotY)
	}
	if gotF != entity.FacingRight {
		t.Fatalf("expected facing right, got %s", gotF)
	}
	if seq.Len() != 2 {
		t.Fatalf("expected 2 inputs still pending, got %d", seq.Len())
	}
	if facing != entity.FacingRight {
		t.Fatalf("expected predicted facing right, got %s", facing)
	}
}

func TestReconcileAfterServerCorrection(t *testing.T) {
	params := testParams()
	pred := NewPredictor(params, nil)
	seq := NewSequencer()
	rec := NewReconciler(seq, pred, zerolog.Nop())

	// The client predicted through a wall the server rejected. Everything
	// is acknowledged, so reconcile snaps hard to the server's answer.
	for i := 0; i < 3; i++ {
		seq.Add([]string{"d"}, "", 0.1)
	}
	gotX, gotY, _ := rec.Reconcile(190, 100, 100, 100, entity.FacingRight, 3)
	if gotX != 100 || gotY != 100 {
		t.Fatalf("expected snap to authority, got (%f,%f)", gotX, gotY)
	}
}

func TestStateCacheMergeMatchesAuthoritative(t *testing.T) {
	sync := deltasync.NewSynchronizer()
	cache := NewStateCache()

	authoritative := entity.State{
		ID: "p1", Kind: entity.KindPlayer, Class: "knight",
		X: 100, Y: 100, Facing: entity.FacingDown,
		HP: 14, MaxHP: 14, ArmorHP: 4, Radius: 16, Level: 1,
	}
	for _, u := range sync.BuildUpdates("c1", []entity.State{authoritative}) {
		cache.ApplyUpdate(u)
	}

	// Several ticks of churn; the merged cache must equal the server's
	// state after every delta.
	steps := []func(*entity.State){
		func(s *entity.State) { s.X = 130 },
		func(s *entity.State) { s.HP = 9; s.ArmorHP = 0 },
		func(s *entity.State) { s.Level = 2; s.XP = 100; s.MoveBonus = 0.5; s.HP = 14 },
		func(s *entity.State) { s.Dead = true; s.HP = 0 },
	}
	for i, step := range steps {
		step(&authoritative)
		updates := sync.BuildUpdates("c1", []entity.State{authoritative})
		merged, desync := cache.ApplyUpdate(updates[0])
		if desync {
			t.Fatalf("step %d: unexpected desync", i)
		}
		if merged != authoritative {
			t.Fatalf("step %d: merged state diverged\n got %+v\nwant %+v", i, merged, authoritative)
		}
	}
}

func TestStateCacheDeltaWithoutHistoryFlagsDesync(t *testing.T) {
	cache := NewStateCache()
	x := 40.0
	u := protocol.EntityUpdate{
		ID: "m9", Kind: entity.KindMonster, UpdateType: protocol.UpdateDelta,
		HP: 12, Facing: entity.FacingLeft, X: &x,
	}
	st, desync := cache.ApplyUpdate(u)
	if !desync {
		t.Fatalf("expected desync flag for delta without history")
	}
	// The update still lands so the entity is at least visible.
	if st.X != 40 || st.HP != 12 {
		t.Fatalf("expected best-effort merge, got %+v", st)
	}
}

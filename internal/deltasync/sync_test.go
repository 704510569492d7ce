package deltasync

import (
	"testing"

	"hardmode/server/internal/entity"
	"hardmode/server/internal/protocol"
)

func playerState(id string, x, y, hp float64) entity.State {
	return entity.State{
		ID:     id,
		Kind:   entity.KindPlayer,
		Class:  "knight",
		X:      x,
		Y:      y,
		Facing: entity.FacingDown,
		HP:     hp,
		MaxHP:  14,
		Radius: 16,
		Level:  1,
	}
}

func TestFirstContactIsFull(t *testing.T) {
	s := NewSynchronizer()
	updates := s.BuildUpdates("c1", []entity.State{playerState("p1", 100, 100, 14)})

	if len(updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(updates))
	}
	u := updates[0]
	if u.UpdateType != protocol.UpdateFull {
		t.Fatalf("expected full update on first contact, got %q", u.UpdateType)
	}
	if u.X == nil || *u.X != 100 || u.Y == nil || *u.Y != 100 {
		t.Fatalf("expected full update to carry position")
	}
	if u.MaxHP == nil || *u.MaxHP != 14 {
		t.Fatalf("expected full update to carry max hp")
	}
	if u.Class == nil || *u.Class != "knight" {
		t.Fatalf("expected full update to carry class")
	}
	if u.Level == nil || *u.Level != 1 {
		t.Fatalf("expected full update to carry level")
	}
}

func TestDeltaCarriesOnlyChangedFields(t *testing.T) {
	s := NewSynchronizer()
	s.BuildUpdates("c1", []entity.State{playerState("p1", 100, 100, 14)})

	next := playerState("p1", 130, 100, 14)
	updates := s.BuildUpdates("c1", []entity.State{next})

	u := updates[0]
	if u.UpdateType != protocol.UpdateDelta {
		t.Fatalf("expected delta, got %q", u.UpdateType)
	}
	if u.X == nil || *u.X != 130 {
		t.Fatalf("expected changed x in delta")
	}
	if u.Y != nil {
		t.Fatalf("expected unchanged y omitted, got %v", *u.Y)
	}
	if u.MaxHP != nil || u.Radius != nil || u.Class != nil || u.Level != nil {
		t.Fatalf("expected unchanged fields omitted")
	}
	// Stability fields ride on every update regardless.
	if u.ID != "p1" || u.Kind != entity.KindPlayer || u.HP != 14 || u.Facing != entity.FacingDown {
		t.Fatalf("expected stability fields on delta")
	}
}

func TestIdenticalStateStillSendsStabilityFields(t *testing.T) {
	s := NewSynchronizer()
	st := playerState("p1", 100, 100, 14)
	s.BuildUpdates("c1", []entity.State{st})
	updates := s.BuildUpdates("c1", []entity.State{st})

	u := updates[0]
	if u.UpdateType != protocol.UpdateDelta {
		t.Fatalf("expected delta for unchanged entity")
	}
	if u.X != nil || u.Y != nil || u.Stunned != nil {
		t.Fatalf("expected empty diff for unchanged entity")
	}
	if u.ID != "p1" || u.HP != 14 {
		t.Fatalf("expected stability fields present")
	}
}

func TestCachesAreIsolatedPerClient(t *testing.T) {
	s := NewSynchronizer()
	st := playerState("p1", 100, 100, 14)
	s.BuildUpdates("c1", []entity.State{st})

	// A second client has no history with p1; it must get a full record
	// even though c1 already did.
	updates := s.BuildUpdates("c2", []entity.State{st})
	if updates[0].UpdateType != protocol.UpdateFull {
		t.Fatalf("expected full for a fresh client, got %q", updates[0].UpdateType)
	}

	moved := playerState("p1", 200, 100, 14)
	if got := s.BuildUpdates("c1", []entity.State{moved})[0]; got.UpdateType != protocol.UpdateDelta {
		t.Fatalf("expected delta for c1, got %q", got.UpdateType)
	}
}

func TestDisappearedEntityRestartsFull(t *testing.T) {
	s := NewSynchronizer()
	st := playerState("p1", 100, 100, 14)
	s.BuildUpdates("c1", []entity.State{st})

	// Entity leaves the broadcast set entirely, then comes back.
	s.BuildUpdates("c1", nil)
	updates := s.BuildUpdates("c1", []entity.State{st})
	if updates[0].UpdateType != protocol.UpdateFull {
		t.Fatalf("expected full after the entity vanished, got %q", updates[0].UpdateType)
	}
}

func TestForgetForcesFull(t *testing.T) {
	s := NewSynchronizer()
	st := playerState("p1", 100, 100, 14)
	s.BuildUpdates("c1", []entity.State{st})

	s.Forget("c1", "p1")
	updates := s.BuildUpdates("c1", []entity.State{st})
	if updates[0].UpdateType != protocol.UpdateFull {
		t.Fatalf("expected full after forget, got %q", updates[0].UpdateType)
	}
}

func TestDropClientReleasesHistory(t *testing.T) {
	s := NewSynchronizer()
	st := playerState("p1", 100, 100, 14)
	s.BuildUpdates("c1", []entity.State{st})

	s.DropClient("c1")
	if len(s.clients) != 0 {
		t.Fatalf("expected client cache released")
	}
	updates := s.BuildUpdates("c1", []entity.State{st})
	if updates[0].UpdateType != protocol.UpdateFull {
		t.Fatalf("expected full after reconnect, got %q", updates[0].UpdateType)
	}
}

func TestMonsterDeltaTracksAIAndStun(t *testing.T) {
	s := NewSynchronizer()
	m := entity.State{
		ID: "m1", Kind: entity.KindMonster, Class: "rat",
		X: 300, Y: 300, Facing: entity.FacingLeft,
		HP: 20, MaxHP: 20, Radius: 12, AI: entity.AIStateIdle,
	}
	s.BuildUpdates("c1", []entity.State{m})

	m.Stunned = true
	m.AI = entity.AIStateStunned
	m.HP = 12
	updates := s.BuildUpdates("c1", []entity.State{m})

	u := updates[0]
	if u.Stunned == nil || !*u.Stunned {
		t.Fatalf("expected stun flag in delta")
	}
	if u.AI == nil || *u.AI != entity.AIStateStunned {
		t.Fatalf("expected ai transition in delta")
	}
	if u.HP != 12 {
		t.Fatalf("expected hp on stability fields, got %f", u.HP)
	}
	if u.X != nil || u.Y != nil {
		t.Fatalf("expected position omitted when still")
	}
}

package sim

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hardmode/server/internal/combat"
	"hardmode/server/internal/entity"
	"hardmode/server/internal/latency"
	"hardmode/server/internal/protocol"
)

func testWorldConfig() Config {
	cfg := DefaultConfig()
	// Shut the input gate's cadence check out of world tests; it has its
	// own coverage.
	cfg.Anticheat.GracePeriod = time.Hour
	return cfg
}

func newTestWorld() (*World, *latency.Tracker) {
	tracker := latency.NewTracker()
	w := NewWorld(testWorldConfig(), nil, tracker, zerolog.Nop())
	return w, tracker
}

func moveMsg(seq uint64, keys []string, dt float64) protocol.InputMessage {
	return protocol.InputMessage{Type: protocol.TypeInput, Seq: seq, Keys: keys, Dt: dt}
}

func TestQueueInputBounded(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("rogue", now)

	for i := 1; i <= 150; i++ {
		w.QueueInput(p.ID, moveMsg(uint64(i), []string{"d"}, 0.016), now.Add(time.Duration(i)*20*time.Millisecond))
	}
	if got := len(w.players[p.ID].queue); got != w.cfg.InputQueueLimit {
		t.Fatalf("expected queue capped at %d, got %d", w.cfg.InputQueueLimit, got)
	}
	// Oldest dropped first: the newest sequence must survive.
	last := w.players[p.ID].queue[len(w.players[p.ID].queue)-1]
	if last.msg.Seq != 150 {
		t.Fatalf("expected newest input retained, got seq %d", last.msg.Seq)
	}
}

func TestQueueInputRejectsUnknownPlayer(t *testing.T) {
	w, _ := newTestWorld()
	if w.QueueInput("ghost", moveMsg(1, []string{"d"}, 0.016), time.Unix(0, 0)) {
		t.Fatalf("expected unknown player input to be rejected")
	}
}

func TestProcessInputsBatchesPerTick(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("rogue", now)

	for i := 1; i <= 12; i++ {
		w.QueueInput(p.ID, moveMsg(uint64(i), []string{"d"}, 0.016), now.Add(time.Duration(i)*20*time.Millisecond))
	}

	w.Advance(now.Add(time.Second))
	if got := w.LastProcessedSeq(p.ID); got != 5 {
		t.Fatalf("expected 5 inputs processed on first tick, got seq %d", got)
	}
	if got := len(w.players[p.ID].queue); got != 7 {
		t.Fatalf("expected 7 inputs carried over, got %d", got)
	}

	w.Advance(now.Add(2 * time.Second))
	if got := w.LastProcessedSeq(p.ID); got != 10 {
		t.Fatalf("expected 10 inputs processed after second tick, got seq %d", got)
	}
}

func TestProcessInputsSortsOutOfOrderSequences(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("rogue", now)

	// Network reordering: 3 arrives before 1 and 2.
	for i, seq := range []uint64{3, 1, 2} {
		w.QueueInput(p.ID, moveMsg(seq, []string{"d"}, 0.1), now.Add(time.Duration(i)*20*time.Millisecond))
	}
	w.Advance(now.Add(time.Second))

	if got := w.LastProcessedSeq(p.ID); got != 3 {
		t.Fatalf("expected all three inputs processed, got seq %d", got)
	}
	// Speed 5 (rogue), three samples of dt 0.1 → 90 units east.
	if p.X != 190 {
		t.Fatalf("expected x=190 after ordered replay, got %f", p.X)
	}
}

func TestStaleSequenceRejected(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("rogue", now)

	w.QueueInput(p.ID, moveMsg(1, []string{"d"}, 0.1), now)
	w.Advance(now.Add(time.Second))

	if w.QueueInput(p.ID, moveMsg(1, []string{"d"}, 0.1), now.Add(2*time.Second)) {
		t.Fatalf("expected replayed sequence to be rejected")
	}
}

func TestAbilityOwnsMovement(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("rogue", now)
	p.Facing = entity.FacingRight

	w.HandleAbility(p.ID, protocol.AbilityMessage{Ability: AbilityDash})
	if !w.abilities.IsActive(p.ID) {
		t.Fatalf("expected dash to activate")
	}

	// Inputs queued during the ability are cleared and skipped.
	w.QueueInput(p.ID, moveMsg(1, []string{"a"}, 0.1), now)
	startX := p.X
	w.Advance(now.Add(time.Second))

	if len(w.players[p.ID].queue) != 0 {
		t.Fatalf("expected queue cleared during ability")
	}
	if p.X <= startX {
		t.Fatalf("expected dash to displace east, got %f -> %f", startX, p.X)
	}
	if got := w.LastProcessedSeq(p.ID); got != 0 {
		t.Fatalf("expected no input processed during ability, got seq %d", got)
	}
}

func TestRollRequiresUnlock(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("rogue", now)

	w.HandleAbility(p.ID, protocol.AbilityMessage{Ability: AbilityRoll})
	if w.abilities.IsActive(p.ID) {
		t.Fatalf("expected roll to be refused before the unlock")
	}

	p.Progression.RollUnlocked = true
	w.HandleAbility(p.ID, protocol.AbilityMessage{Ability: AbilityRoll})
	if !w.abilities.IsActive(p.ID) {
		t.Fatalf("expected roll after unlock")
	}
}

func TestMonsterWindupLands(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("rogue", now)
	p.ProtectedUntil = 0 // close spawn protection for the test
	m := w.SpawnMonster("rat", p.X+20, p.Y)

	// First tick aggros and schedules the wind-up.
	w.Advance(now)
	if m.AttackScheduled == 0 {
		t.Fatalf("expected attack scheduled")
	}
	if m.AI != entity.AIStateAggro {
		t.Fatalf("expected aggro state, got %q", m.AI)
	}

	// Step to the landing tick.
	hpBefore := p.HP
	for i := 0; i < int(w.cfg.MonsterWindupTicks); i++ {
		w.Advance(now.Add(time.Duration(i+1) * 50 * time.Millisecond))
	}
	if p.HP != hpBefore-w.cfg.MonsterAttackDamage {
		t.Fatalf("expected contact damage %f, got hp %f -> %f", w.cfg.MonsterAttackDamage, hpBefore, p.HP)
	}
}

func TestMonsterDespawnsAfterDeath(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("rogue", now)
	m := w.SpawnMonster("rat", p.X+30, p.Y)

	// Kill it directly through the resolver.
	w.resolver.ApplyDamage(p, m, 100, combat.DamageMelee, w.tick)

	despawnAt := m.DespawnAtTick
	if despawnAt == 0 {
		t.Fatalf("expected despawn timer")
	}
	for w.tick < despawnAt {
		w.Advance(now.Add(time.Duration(w.tick) * 50 * time.Millisecond))
	}
	if _, ok := w.Monster(m.ID); ok {
		t.Fatalf("expected monster removed at despawn tick")
	}
}

func TestPlayerRespawnsAtSpawnWithProtection(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("rogue", now)
	p.ProtectedUntil = 0
	p.X, p.Y = 500, 500

	w.resolver.ApplyDamage(nil, p, 100, combat.DamageHazard, w.tick)
	if !p.Dead {
		t.Fatalf("expected player dead")
	}

	for p.Dead {
		w.Advance(now.Add(time.Duration(w.tick) * 50 * time.Millisecond))
	}
	if p.X != w.cfg.SpawnX || p.Y != w.cfg.SpawnY {
		t.Fatalf("expected respawn at spawn point, got (%f,%f)", p.X, p.Y)
	}
	if p.HP != p.MaxHP {
		t.Fatalf("expected full heal on respawn, got %f", p.HP)
	}
	if !p.Protected(w.tick) {
		t.Fatalf("expected spawn protection window open")
	}
}

func TestAttackMonsterThroughRollback(t *testing.T) {
	w, tracker := newTestWorld()
	now := time.Unix(1_000_000, 0)
	p := w.AddPlayer("rogue", now)
	m := w.SpawnMonster("rat", p.X+40, p.Y)
	p.Facing = entity.FacingRight
	tracker.Observe(p.ID, 80*time.Millisecond)

	// One tick captures a snapshot both entities appear in.
	w.Advance(now)

	claim := protocol.AttackMonsterMessage{
		MonsterID: m.ID,
		Attack:    "slash",
		T:         now.UnixMilli() + 50,
	}
	w.HandleAttackMonster(p.ID, claim, now.Add(50*time.Millisecond))

	want := m.MaxHP - w.cfg.Attacks["slash"].Damage
	if m.HP != want {
		t.Fatalf("expected monster hp %f after slash, got %f", want, m.HP)
	}
	if !m.Stunned {
		t.Fatalf("expected hit stun")
	}
}

func TestAttackRejectedWithoutSnapshot(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(1_000_000, 0)
	p := w.AddPlayer("rogue", now)
	m := w.SpawnMonster("rat", p.X+40, p.Y)

	// No tick has run: the ring is empty and the hit must fail closed.
	claim := protocol.AttackMonsterMessage{MonsterID: m.ID, Attack: "slash", T: now.UnixMilli()}
	w.HandleAttackMonster(p.ID, claim, now)

	if m.HP != m.MaxHP {
		t.Fatalf("expected no damage without a snapshot, got %f", m.HP)
	}
}

func TestProjectileAttackSpawnsAndTravels(t *testing.T) {
	w, _ := newTestWorld()
	now := time.Unix(0, 0)
	p := w.AddPlayer("ranger", now)
	p.Facing = entity.FacingRight

	w.HandleAttack(p.ID, protocol.AttackMessage{Attack: "arrow", Facing: "right", T: 1}, now)
	if len(w.projectiles) != 1 {
		t.Fatalf("expected one projectile, got %d", len(w.projectiles))
	}

	m := w.SpawnMonster("rat", p.X+200, p.Y)
	for i := 0; i < 10 && !m.Stunned && m.HP == m.MaxHP; i++ {
		w.Advance(now.Add(time.Duration(i+1) * 50 * time.Millisecond))
	}
	if m.HP != m.MaxHP-w.cfg.Attacks["arrow"].Damage {
		t.Fatalf("expected arrow damage, got hp %f", m.HP)
	}
	if len(w.projectiles) != 0 {
		t.Fatalf("expected projectile consumed on hit")
	}
}

func TestAttackCooldown(t *testing.T) {
	w, tracker := newTestWorld()
	now := time.Unix(1_000_000, 0)
	p := w.AddPlayer("rogue", now)
	m := w.SpawnMonster("rat", p.X+40, p.Y)
	p.Facing = entity.FacingRight
	tracker.Observe(p.ID, 20*time.Millisecond)
	w.Advance(now)

	claim := protocol.AttackMonsterMessage{MonsterID: m.ID, Attack: "slash", T: now.UnixMilli() + 10}
	w.HandleAttackMonster(p.ID, claim, now)
	w.HandleAttackMonster(p.ID, claim, now) // still cooling down

	want := m.MaxHP - w.cfg.Attacks["slash"].Damage
	if m.HP != want {
		t.Fatalf("expected a single hit during cooldown, got hp %f", m.HP)
	}
}

// Package sim owns the authoritative world: entity registries, the
// per-tick processing order, and every tick-counted timer. One World is one
// game instance; instances share nothing.
package sim

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"hardmode/server/internal/anticheat"
	"hardmode/server/internal/combat"
	"hardmode/server/internal/entity"
	"hardmode/server/internal/history"
	"hardmode/server/internal/lagcomp"
	"hardmode/server/internal/latency"
)

// KickRequest signals the transport layer to end a session. The world only
// decides; the network layer owns the severing.
type KickRequest struct {
	PlayerID string
	Reason   string
}

type playerState struct {
	actor            *entity.Actor
	queue            []queuedInput
	lastProcessedSeq uint64
	attackReadyAt    uint64
}

// World is the authoritative simulation state for one game instance.
// Everything in it is owned by the tick goroutine; the hub serializes all
// access behind its own lock.
type World struct {
	cfg    Config
	log    zerolog.Logger
	events *EventBuffer

	players     map[string]*playerState
	monsters    map[string]*entity.Actor
	projectiles map[string]*entity.Actor

	validator *anticheat.Validator
	resolver  *combat.Resolver
	history   *history.Ring
	hits      *lagcomp.Resolver
	abilities *AbilityManager
	mask      CollisionMask

	tick   uint64
	nextID uint64
	kicks  []KickRequest
}

// NewWorld wires the components around a shared config. The latency
// tracker is injected because ping samples arrive on network goroutines.
func NewWorld(cfg Config, mask CollisionMask, tracker *latency.Tracker, log zerolog.Logger) *World {
	events := &EventBuffer{}
	hist := history.NewRing(cfg.SnapshotRetentionMillis)
	return &World{
		cfg:         cfg,
		log:         log,
		events:      events,
		players:     make(map[string]*playerState),
		monsters:    make(map[string]*entity.Actor),
		projectiles: make(map[string]*entity.Actor),
		validator:   anticheat.NewValidator(cfg.Anticheat, log),
		resolver:    combat.NewResolver(cfg.Combat, log, events),
		history:     hist,
		hits: lagcomp.NewResolver(hist, tracker,
			time.Duration(cfg.MaxCompensationMillis)*time.Millisecond, log),
		abilities: NewAbilityManager(cfg),
		mask:      mask,
	}
}

// Config returns the world tuning.
func (w *World) Config() Config { return w.cfg }

// CurrentTick returns the tick counter.
func (w *World) CurrentTick() uint64 { return w.tick }

// Validator exposes anti-cheat state for diagnostics.
func (w *World) Validator() *anticheat.Validator { return w.validator }

// AddPlayer registers a new player at the spawn point and opens its
// anti-cheat grace window.
func (w *World) AddPlayer(class string, now time.Time) *entity.Actor {
	w.nextID++
	stats := w.cfg.ClassFor(class)
	actor := &entity.Actor{
		ID:      fmt.Sprintf("player-%d", w.nextID),
		Kind:    entity.KindPlayer,
		Class:   class,
		X:       w.cfg.SpawnX,
		Y:       w.cfg.SpawnY,
		Facing:  entity.DefaultFacing,
		HP:      stats.MaxHP,
		MaxHP:   stats.MaxHP,
		ArmorHP: stats.ArmorHP,
		Radius:  stats.Radius,
		Progression: entity.Progression{Level: 1},
	}
	actor.ProtectedUntil = w.tick + w.cfg.Combat.SpawnProtectionTicks
	w.players[actor.ID] = &playerState{actor: actor}
	w.validator.Register(actor.ID, now)
	w.log.Info().Str("player", actor.ID).Str("class", class).Msg("player joined")
	return actor
}

// RemovePlayer drops a player and every record tied to it. The removal is
// complete before the next tick observes the world.
func (w *World) RemovePlayer(id string) {
	delete(w.players, id)
	w.validator.Remove(id)
	w.abilities.Drop(id)
	w.log.Info().Str("player", id).Msg("player removed")
}

// SpawnMonster registers a monster of the given class.
func (w *World) SpawnMonster(class string, x, y float64) *entity.Actor {
	w.nextID++
	stats := w.cfg.ClassFor(class)
	actor := &entity.Actor{
		ID:      fmt.Sprintf("monster-%d", w.nextID),
		Kind:    entity.KindMonster,
		Class:   class,
		X:       x,
		Y:       y,
		Facing:  entity.DefaultFacing,
		HP:      stats.MaxHP,
		MaxHP:   stats.MaxHP,
		ArmorHP: stats.ArmorHP,
		Radius:  stats.Radius,
		AI:      entity.AIStateIdle,
	}
	w.monsters[actor.ID] = actor
	return actor
}

// Player returns a player's actor.
func (w *World) Player(id string) (*entity.Actor, bool) {
	p, ok := w.players[id]
	if !ok {
		return nil, false
	}
	return p.actor, true
}

// Monster returns a monster's actor.
func (w *World) Monster(id string) (*entity.Actor, bool) {
	m, ok := w.monsters[id]
	return m, ok
}

// LastProcessedSeq reports the newest input sequence applied for a player.
func (w *World) LastProcessedSeq(id string) uint64 {
	if p, ok := w.players[id]; ok {
		return p.lastProcessedSeq
	}
	return 0
}

// Advance runs one simulation tick in the fixed order: queued inputs,
// scripted abilities, monsters, projectiles, timers, snapshot capture.
func (w *World) Advance(now time.Time) {
	w.tick++
	dt := 1.0 / float64(w.cfg.TickRate)

	w.processInputs(dt, now)
	w.abilities.Advance(w.playerActors(), w.tick, w.mask)
	w.advanceMonsters()
	w.advanceProjectiles(now)
	w.advanceTimers(now)
	w.captureSnapshot(now)
}

func (w *World) playerActors() map[string]*entity.Actor {
	out := make(map[string]*entity.Actor, len(w.players))
	for id, p := range w.players {
		out[id] = p.actor
	}
	return out
}

func (w *World) sortedPlayerIDs() []string {
	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) sortedMonsterIDs() []string {
	ids := make([]string, 0, len(w.monsters))
	for id := range w.monsters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) advanceMonsters() {
	playerIDs := w.sortedPlayerIDs()

	for _, id := range w.sortedMonsterIDs() {
		m := w.monsters[id]
		if m.Dead {
			continue
		}

		if m.Stunned && w.tick >= m.StunUntilTick {
			m.Stunned = false
			m.AI = entity.AIStateIdle
		}
		if m.Stunned {
			continue
		}

		target, dist := w.nearestPlayer(m, playerIDs)
		if target == nil || dist > w.cfg.MonsterAggroRange {
			m.AI = entity.AIStateIdle
			m.AttackScheduled = 0
			m.AttackTargetID = ""
			continue
		}
		m.AI = entity.AIStateAggro
		m.Facing = entity.DeriveFacing(target.X-m.X, target.Y-m.Y, m.Facing)

		if m.AttackScheduled != 0 && w.tick >= m.AttackScheduled {
			w.executeMonsterAttack(m)
			continue
		}
		if m.AttackScheduled == 0 && w.tick >= m.AttackReadyAt && dist <= w.cfg.MonsterAttackRange+target.Radius {
			m.AttackScheduled = w.tick + w.cfg.MonsterWindupTicks
			m.AttackTargetID = target.ID
		}
	}
}

func (w *World) nearestPlayer(m *entity.Actor, playerIDs []string) (*entity.Actor, float64) {
	var best *entity.Actor
	bestDist := 0.0
	for _, id := range playerIDs {
		p := w.players[id].actor
		if p.Dead {
			continue
		}
		d := distance(m.X, m.Y, p.X, p.Y)
		if best == nil || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist
}

func (w *World) executeMonsterAttack(m *entity.Actor) {
	m.AttackScheduled = 0
	m.AttackReadyAt = w.tick + w.cfg.MonsterCooldown

	p, ok := w.players[m.AttackTargetID]
	m.AttackTargetID = ""
	if !ok || p.actor.Dead {
		return
	}
	// The wind-up landed; the target may have stepped away in the meantime.
	if distance(m.X, m.Y, p.actor.X, p.actor.Y) > w.cfg.MonsterAttackRange+p.actor.Radius {
		return
	}
	w.resolver.ApplyDamage(m, p.actor, w.cfg.MonsterAttackDamage, combat.DamageContact, w.tick)
}

func (w *World) advanceProjectiles(now time.Time) {
	ids := make([]string, 0, len(w.projectiles))
	for id := range w.projectiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		proj := w.projectiles[id]
		targetX := proj.X + proj.VelX
		targetY := proj.Y + proj.VelY

		expired := proj.TTL == 0
		if !expired {
			proj.TTL--
		}
		blocked := w.mask != nil && !w.mask.CanMove(proj.X, proj.Y, targetX, targetY)
		outOfBounds := targetX < 0 || targetY < 0 || targetX > w.cfg.Width || targetY > w.cfg.Height

		if expired || blocked || outOfBounds {
			delete(w.projectiles, id)
			continue
		}
		proj.X, proj.Y = targetX, targetY

		if hit := w.projectileHit(proj); hit != nil {
			owner, _ := w.Player(proj.OwnerID)
			preLevel := playerLevel(owner)
			w.resolver.ApplyDamage(owner, hit, proj.Damage, combat.DamageProjectile, w.tick)
			w.noteLevelChange(owner, preLevel, now)
			delete(w.projectiles, id)
		}
	}
}

func (w *World) projectileHit(proj *entity.Actor) *entity.Actor {
	for _, id := range w.sortedMonsterIDs() {
		m := w.monsters[id]
		if !m.Dead && distance(proj.X, proj.Y, m.X, m.Y) <= proj.Radius+m.Radius {
			return m
		}
	}
	for _, id := range w.sortedPlayerIDs() {
		if id == proj.OwnerID {
			continue
		}
		p := w.players[id].actor
		if !p.Dead && distance(proj.X, proj.Y, p.X, p.Y) <= proj.Radius+p.Radius {
			return p
		}
	}
	return nil
}

func (w *World) advanceTimers(now time.Time) {
	for _, id := range w.sortedPlayerIDs() {
		p := w.players[id].actor
		if p.Dead && p.RespawnAtTick != 0 && w.tick >= p.RespawnAtTick {
			w.resolver.Respawn(p, w.cfg.SpawnX, w.cfg.SpawnY, w.tick)
			w.validator.NoteTeleport(id, p.X, p.Y, now)
		}
	}
	for _, id := range w.sortedMonsterIDs() {
		m := w.monsters[id]
		if m.Dead && m.DespawnAtTick != 0 && w.tick >= m.DespawnAtTick {
			delete(w.monsters, id)
		}
	}
}

func (w *World) captureSnapshot(now time.Time) {
	states := make([]entity.State, 0, len(w.players)+len(w.monsters))
	for _, p := range w.players {
		if p.actor.Alive() {
			states = append(states, p.actor.Snapshot())
		}
	}
	for _, m := range w.monsters {
		if m.Alive() {
			states = append(states, m.Snapshot())
		}
	}
	w.history.Capture(now.UnixMilli(), w.tick, states)
}

// PlayerStates returns client-visible player states in stable order.
func (w *World) PlayerStates() []entity.State {
	out := make([]entity.State, 0, len(w.players))
	for _, id := range w.sortedPlayerIDs() {
		out = append(out, w.players[id].actor.Snapshot())
	}
	return out
}

// MonsterStates returns client-visible monster states in stable order.
func (w *World) MonsterStates() []entity.State {
	out := make([]entity.State, 0, len(w.monsters))
	for _, id := range w.sortedMonsterIDs() {
		out = append(out, w.monsters[id].Snapshot())
	}
	return out
}

// ProjectileStates returns client-visible projectile states in stable order.
func (w *World) ProjectileStates() []entity.State {
	ids := make([]string, 0, len(w.projectiles))
	for id := range w.projectiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]entity.State, 0, len(ids))
	for _, id := range ids {
		out = append(out, w.projectiles[id].Snapshot())
	}
	return out
}

// DrainEvents returns and clears the tick's event messages.
func (w *World) DrainEvents() []any { return w.events.Drain() }

// DrainKicks returns and clears pending kick signals.
func (w *World) DrainKicks() []KickRequest {
	if len(w.kicks) == 0 {
		return nil
	}
	out := w.kicks
	w.kicks = nil
	return out
}

func playerLevel(p *entity.Actor) int {
	if p == nil {
		return 0
	}
	return p.Progression.Level
}

// noteLevelChange reopens the anti-cheat grace window when XP pushed the
// player over a threshold during this action.
func (w *World) noteLevelChange(p *entity.Actor, preLevel int, now time.Time) {
	if p != nil && p.Progression.Level != preLevel {
		w.validator.NoteLevelChange(p.ID, now)
	}
}

func distance(x0, y0, x1, y1 float64) float64 {
	return math.Hypot(x1-x0, y1-y0)
}

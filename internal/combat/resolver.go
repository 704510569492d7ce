// Package combat is the single authority for damage math, death handling,
// stun, experience, and leveling. It consumes validated hit events only;
// client-supplied damage numbers never reach it.
package combat

import (
	"github.com/rs/zerolog"

	"hardmode/server/internal/entity"
	"hardmode/server/internal/protocol"
)

// DamageType tags the origin of a damage application.
type DamageType string

const (
	DamageMelee      DamageType = "melee"
	DamageProjectile DamageType = "projectile"
	DamageContact    DamageType = "contact"
	DamageHazard     DamageType = "hazard"
)

// RejectReason explains a refused damage application. Typed results let
// callers branch without unwinding; a dead target is an expected outcome,
// not an exception.
type RejectReason string

const (
	RejectNone           RejectReason = ""
	RejectDead           RejectReason = "target_dead"
	RejectInvulnerable   RejectReason = "target_invulnerable"
	RejectSpawnProtected RejectReason = "spawn_protected"
	RejectNonPositive    RejectReason = "non_positive_amount"
	RejectMissingTarget  RejectReason = "missing_target"
)

// DamageResult reports what a damage application actually did.
type DamageResult struct {
	Applied       bool
	Reason        RejectReason
	ArmorAbsorbed float64
	HealthDamage  float64
	Killed        bool
}

// LevelUp records one crossed threshold and the bonus it granted. Bonus is
// the zero value when the table grants nothing at that level.
type LevelUp struct {
	NewLevel int
	Bonus    Bonus
	HasBonus bool
}

// Config tunes death, stun, and protection timing. All values are
// simulation ticks so tests can step time explicitly.
type Config struct {
	StunTicks            uint64
	RespawnDelayTicks    uint64
	DespawnDelayTicks    uint64
	SpawnProtectionTicks uint64
	MonsterXPReward      map[string]int
	Progression          ProgressionTable
}

// DefaultConfig mirrors the live tuning at the default 20 Hz tick rate.
func DefaultConfig() Config {
	return Config{
		StunTicks:            6,  // 300ms
		RespawnDelayTicks:    60, // 3s
		DespawnDelayTicks:    20, // 1s death animation
		SpawnProtectionTicks: 40, // 2s
		MonsterXPReward: map[string]int{
			"rat":      10,
			"skeleton": 25,
			"ogre":     60,
		},
		Progression: DefaultProgression(CurveProgressive),
	}
}

// Resolver applies all combat and progression outcomes.
type Resolver struct {
	cfg    Config
	log    zerolog.Logger
	events protocol.Sink
}

// NewResolver builds a resolver that reports outcomes into the sink.
func NewResolver(cfg Config, log zerolog.Logger, events protocol.Sink) *Resolver {
	return &Resolver{cfg: cfg, log: log, events: events}
}

// Progression exposes the active table for hashing and client handshakes.
func (r *Resolver) Progression() ProgressionTable {
	return r.cfg.Progression
}

// ApplyDamage applies amount to target, armor first, clamped into
// [0, MaxHP]. Dead, invulnerable, and spawn-protected targets reject.
// On a kill the death handling fires exactly once, inside this call.
func (r *Resolver) ApplyDamage(source, target *entity.Actor, amount float64, dtype DamageType, tick uint64) DamageResult {
	if r == nil || target == nil {
		return DamageResult{Reason: RejectMissingTarget}
	}
	if amount <= 0 {
		return DamageResult{Reason: RejectNonPositive}
	}
	if target.Dead || target.HP <= 0 {
		return DamageResult{Reason: RejectDead}
	}
	if target.Invulnerable {
		return DamageResult{Reason: RejectInvulnerable}
	}
	if target.Protected(tick) {
		return DamageResult{Reason: RejectSpawnProtected}
	}

	absorbed := amount
	if absorbed > target.ArmorHP {
		absorbed = target.ArmorHP
	}
	target.ArmorHP -= absorbed
	healthDamage := amount - absorbed
	target.HP -= healthDamage
	killed := target.HP <= 0
	target.ClampHP()

	sourceID := ""
	if source != nil {
		sourceID = source.ID
	}

	r.emit(protocol.DamagedMessage{
		Ver:     protocol.ProtocolVersion,
		Type:    damagedType(target.Kind),
		ID:      target.ID,
		Damage:  amount,
		HP:      target.HP,
		ArmorHP: target.ArmorHP,
		Source:  sourceID,
	})

	if !killed && target.Kind == entity.KindMonster {
		r.stunMonster(target, tick)
	}
	if killed {
		r.handleDeath(source, target, tick)
	}

	return DamageResult{
		Applied:       true,
		ArmorAbsorbed: absorbed,
		HealthDamage:  healthDamage,
		Killed:        killed,
	}
}

func damagedType(kind entity.Kind) string {
	if kind == entity.KindMonster {
		return protocol.TypeMonsterDamaged
	}
	return protocol.TypePlayerDamaged
}

// stunMonster applies the fixed hit stun: the timer starts, any wound-up
// attack is interrupted, and the AI surface flips to stunned.
func (r *Resolver) stunMonster(m *entity.Actor, tick uint64) {
	m.Stunned = true
	m.StunUntilTick = tick + r.cfg.StunTicks
	m.AttackScheduled = 0
	m.AI = entity.AIStateStunned
}

func (r *Resolver) handleDeath(source, target *entity.Actor, tick uint64) {
	target.Dead = true
	target.HP = 0

	switch target.Kind {
	case entity.KindMonster:
		target.DespawnAtTick = tick + r.cfg.DespawnDelayTicks
		target.AttackScheduled = 0

		reward := r.cfg.MonsterXPReward[target.Class]
		killerXP, killerLevel := 0, 0
		killerID := ""
		if source != nil && source.Kind == entity.KindPlayer {
			killerID = source.ID
			r.AwardXP(source, reward, tick)
			killerXP = source.Progression.XP
			killerLevel = source.Progression.Level
		}
		r.emit(protocol.MonsterKilledMessage{
			Ver:         protocol.ProtocolVersion,
			Type:        protocol.TypeMonsterKilled,
			ID:          target.ID,
			KillerID:    killerID,
			XPReward:    reward,
			KillerXP:    killerXP,
			KillerLevel: killerLevel,
		})
		r.log.Info().Str("monster", target.ID).Str("killer", killerID).Msg("monster killed")

	case entity.KindPlayer:
		target.RespawnAtTick = tick + r.cfg.RespawnDelayTicks
		killerID := ""
		if source != nil {
			killerID = source.ID
		}
		r.emit(protocol.PlayerKilledMessage{
			Ver:      protocol.ProtocolVersion,
			Type:     protocol.TypePlayerKilled,
			ID:       target.ID,
			KillerID: killerID,
		})
		r.log.Info().Str("player", target.ID).Str("killer", killerID).Msg("player killed")
	}
}

// AwardXP adds experience and walks every crossed threshold in order. Each
// threshold applies its table bonus and a full heal exactly once.
func (r *Resolver) AwardXP(player *entity.Actor, xp int, tick uint64) []LevelUp {
	if r == nil || player == nil || player.Kind != entity.KindPlayer || xp <= 0 {
		return nil
	}
	player.Progression.XP += xp

	var ups []LevelUp
	table := r.cfg.Progression
	for player.Progression.Level < table.MaxLevel &&
		player.Progression.XP >= table.XPForLevel(player.Progression.Level+1) {
		player.Progression.Level++
		up := LevelUp{NewLevel: player.Progression.Level}

		if bonus, ok := table.BonusFor(player.Progression.Level); ok {
			r.applyBonus(player, bonus)
			up.Bonus = bonus
			up.HasBonus = true
		}
		player.HP = player.MaxHP // full heal on level up

		r.emit(protocol.LevelUpMessage{
			Ver:        protocol.ProtocolVersion,
			Type:       protocol.TypePlayerLevelUp,
			PlayerID:   player.ID,
			Level:      player.Progression.Level,
			HP:         player.HP,
			MaxHP:      player.MaxHP,
			Bonus:      string(up.Bonus.Kind),
			BonusValue: up.Bonus.Value,
		})
		ups = append(ups, up)
	}
	return ups
}

func (r *Resolver) applyBonus(player *entity.Actor, bonus Bonus) {
	switch bonus.Kind {
	case BonusMoveSpeed:
		player.Progression.MoveSpeedBonus += bonus.Value
	case BonusAttackCooldown:
		player.Progression.AttackCooldownReduction += bonus.Value
	case BonusAttackRecovery:
		player.Progression.AttackRecoveryReduction += bonus.Value
	case BonusRollUnlock:
		player.Progression.RollUnlocked = true
	}
}

// Respawn returns a dead player to a clean state at the given spot and
// opens the spawn-protection window.
func (r *Resolver) Respawn(player *entity.Actor, x, y float64, tick uint64) {
	if r == nil || player == nil {
		return
	}
	player.Dead = false
	player.HP = player.MaxHP
	player.ArmorHP = 0
	player.Stunned = false
	player.StunUntilTick = 0
	player.RespawnAtTick = 0
	player.ProtectedUntil = tick + r.cfg.SpawnProtectionTicks
	player.X = x
	player.Y = y

	r.emit(protocol.RespawnedMessage{
		Ver:   protocol.ProtocolVersion,
		Type:  protocol.TypePlayerRespawned,
		ID:    player.ID,
		X:     x,
		Y:     y,
		HP:    player.HP,
		MaxHP: player.MaxHP,
	})
}

func (r *Resolver) emit(msg any) {
	if r.events != nil {
		r.events.Emit(msg)
	}
}

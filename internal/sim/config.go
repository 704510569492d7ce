package sim

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"

	"hardmode/server/internal/anticheat"
	"hardmode/server/internal/combat"
)

// ClassStats carries the per-class tuning movement and combat read.
// MoveSpeed is units per frame at the canonical 60 FPS step.
type ClassStats struct {
	MoveSpeed float64 `json:"moveSpeed"`
	MaxHP     float64 `json:"maxHp"`
	ArmorHP   float64 `json:"armorHp"`
	Radius    float64 `json:"radius"`
}

// AttackSpec describes one attack's geometry and payload. Projectile
// attacks spawn a moving entity instead of resolving instantly.
type AttackSpec struct {
	Damage      float64 `json:"damage"`
	Range       float64 `json:"range"`
	ConeDegrees float64 `json:"coneDegrees"`
	Projectile  bool    `json:"projectile"`
	Speed       float64 `json:"speed,omitempty"`
	TTLTicks    uint64  `json:"ttlTicks,omitempty"`
}

// Config is the world tuning handed to every component at construction.
type Config struct {
	TickRate int
	Width    float64
	Height   float64

	SpawnX float64
	SpawnY float64

	// Facing-vs-movement speed modifiers.
	BackwardFactor float64
	StrafeFactor   float64

	InputQueueLimit     int
	InputBatchPerTick   int
	AttackCooldownTicks uint64

	SnapshotRetentionMillis int64
	MaxCompensationMillis   int64

	MonsterAggroRange   float64
	MonsterAttackRange  float64
	MonsterWindupTicks  uint64
	MonsterAttackDamage float64
	MonsterCooldown     uint64

	Classes map[string]ClassStats
	Attacks map[string]AttackSpec

	Combat    combat.Config
	Anticheat anticheat.Config
}

// DefaultConfig mirrors the live tuning.
func DefaultConfig() Config {
	return Config{
		TickRate:                20,
		Width:                   2400,
		Height:                  2400,
		SpawnX:                  100,
		SpawnY:                  100,
		BackwardFactor:          0.5,
		StrafeFactor:            0.75,
		InputQueueLimit:         100,
		InputBatchPerTick:       5,
		AttackCooldownTicks:     10,
		SnapshotRetentionMillis: 1000,
		MaxCompensationMillis:   200,
		MonsterAggroRange:       220,
		MonsterAttackRange:      40,
		MonsterWindupTicks:      8,
		MonsterAttackDamage:     4,
		MonsterCooldown:         30,
		Classes: map[string]ClassStats{
			"knight":   {MoveSpeed: 4, MaxHP: 14, ArmorHP: 4, Radius: 16},
			"rogue":    {MoveSpeed: 5, MaxHP: 10, ArmorHP: 0, Radius: 14},
			"ranger":   {MoveSpeed: 4.5, MaxHP: 11, ArmorHP: 1, Radius: 14},
			"rat":      {MoveSpeed: 3, MaxHP: 20, ArmorHP: 0, Radius: 12},
			"skeleton": {MoveSpeed: 2.5, MaxHP: 35, ArmorHP: 2, Radius: 14},
			"ogre":     {MoveSpeed: 2, MaxHP: 80, ArmorHP: 6, Radius: 24},
		},
		Attacks: map[string]AttackSpec{
			"slash": {Damage: 8, Range: 60, ConeDegrees: 120},
			"stab":  {Damage: 12, Range: 80, ConeDegrees: 40},
			"arrow": {Damage: 6, Range: 600, Projectile: true, Speed: 12, TTLTicks: 50},
		},
		Combat:    combat.DefaultConfig(),
		Anticheat: anticheat.DefaultConfig(),
	}
}

// ClassFor returns the stats for a class, falling back to the knight
// baseline for unknown tags so a bad spawn never zeroes movement.
func (c Config) ClassFor(class string) ClassStats {
	if stats, ok := c.Classes[class]; ok {
		return stats
	}
	return c.Classes["knight"]
}

// Hash fingerprints the movement and progression tuning so clients can
// detect drift at join time.
func (c Config) Hash() string {
	doc := struct {
		Width          float64                `json:"width"`
		Height         float64                `json:"height"`
		BackwardFactor float64                `json:"backwardFactor"`
		StrafeFactor   float64                `json:"strafeFactor"`
		Classes        map[string]ClassStats  `json:"classes"`
		Attacks        map[string]AttackSpec  `json:"attacks"`
		Progression    string                 `json:"progression"`
	}{
		Width:          c.Width,
		Height:         c.Height,
		BackwardFactor: c.BackwardFactor,
		StrafeFactor:   c.StrafeFactor,
		Classes:        c.Classes,
		Attacks:        c.Attacks,
		Progression:    c.Combat.Progression.Hash(),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.Hash(raw))
}

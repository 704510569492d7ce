package combat

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"
)

// CurveMode selects how XP thresholds grow per level.
type CurveMode string

const (
	// CurveLinear is the flat playtest curve: every level costs the same.
	CurveLinear CurveMode = "linear"
	// CurveProgressive is the triangular live curve: each level costs more
	// than the one before it.
	CurveProgressive CurveMode = "progressive"
)

// ParseCurveMode validates a curve name from configuration.
func ParseCurveMode(value string) (CurveMode, bool) {
	switch CurveMode(value) {
	case CurveLinear, CurveProgressive:
		return CurveMode(value), true
	case "":
		return CurveProgressive, true
	default:
		return "", false
	}
}

// BonusKind enumerates the per-level rewards.
type BonusKind string

const (
	BonusMoveSpeed      BonusKind = "move-speed"
	BonusAttackCooldown BonusKind = "attack-cooldown"
	BonusAttackRecovery BonusKind = "attack-recovery"
	BonusRollUnlock     BonusKind = "roll-unlock"
)

// Bonus is one table-driven level reward.
type Bonus struct {
	Kind  BonusKind `json:"kind"`
	Value float64   `json:"value,omitempty"`
}

// ProgressionTable publishes XP thresholds and level bonuses. It is
// deterministic: replaying the same level transition yields the same bonus
// exactly once, because bonuses key off the crossed level number.
type ProgressionTable struct {
	Mode        CurveMode
	LinearStep  int
	Triangle    int
	MaxLevel    int
	LevelBonuses map[int]Bonus
}

// DefaultProgression mirrors the live tuning.
func DefaultProgression(mode CurveMode) ProgressionTable {
	if mode == "" {
		mode = CurveProgressive
	}
	return ProgressionTable{
		Mode:       mode,
		LinearStep: 100,
		Triangle:   50,
		MaxLevel:   10,
		LevelBonuses: map[int]Bonus{
			2:  {Kind: BonusMoveSpeed, Value: 0.5},
			3:  {Kind: BonusAttackCooldown, Value: 0.1},
			4:  {Kind: BonusRollUnlock},
			5:  {Kind: BonusAttackRecovery, Value: 0.1},
			6:  {Kind: BonusMoveSpeed, Value: 0.5},
			7:  {Kind: BonusAttackCooldown, Value: 0.1},
			8:  {Kind: BonusAttackRecovery, Value: 0.1},
			9:  {Kind: BonusMoveSpeed, Value: 0.5},
			10: {Kind: BonusAttackCooldown, Value: 0.1},
		},
	}
}

// XPForLevel returns the cumulative experience needed to reach a level.
// Level 1 is free; levels past MaxLevel are unreachable.
func (t ProgressionTable) XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level > t.MaxLevel {
		// Unreachable sentinel keeps the level-up loop bounded.
		return int(^uint(0) >> 1)
	}
	if t.Mode == CurveLinear {
		return (level - 1) * t.LinearStep
	}
	// Triangular: threshold(n) = triangle * (n-1) * n / 2 * 2 simplified to
	// triangle * (n-1) * n, so each level costs more than the previous one.
	return t.Triangle * (level - 1) * level
}

// LevelForXP returns the highest level the accumulated XP satisfies.
func (t ProgressionTable) LevelForXP(xp int) int {
	level := 1
	for level < t.MaxLevel && xp >= t.XPForLevel(level+1) {
		level++
	}
	return level
}

// BonusFor returns the bonus granted on reaching a level, if any.
func (t ProgressionTable) BonusFor(level int) (Bonus, bool) {
	b, ok := t.LevelBonuses[level]
	return b, ok
}

// Hash fingerprints the table so clients can detect configuration drift.
// The serialization is key-sorted to keep the hash stable across runs.
func (t ProgressionTable) Hash() string {
	levels := make([]int, 0, len(t.LevelBonuses))
	for lvl := range t.LevelBonuses {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)

	type entry struct {
		Level int   `json:"level"`
		Bonus Bonus `json:"bonus"`
	}
	doc := struct {
		Mode       CurveMode `json:"mode"`
		LinearStep int       `json:"linearStep"`
		Triangle   int       `json:"triangle"`
		MaxLevel   int       `json:"maxLevel"`
		Entries    []entry   `json:"entries"`
	}{Mode: t.Mode, LinearStep: t.LinearStep, Triangle: t.Triangle, MaxLevel: t.MaxLevel}
	for _, lvl := range levels {
		doc.Entries = append(doc.Entries, entry{Level: lvl, Bonus: t.LevelBonuses[lvl]})
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.Hash(raw))
}

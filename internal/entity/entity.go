package entity

import "math"

// Kind discriminates the entity union. Wire messages and the simulation both
// branch on it exactly once, at ingestion.
type Kind string

const (
	KindPlayer     Kind = "player"
	KindMonster    Kind = "monster"
	KindProjectile Kind = "projectile"
)

// ParseKind validates a kind string received from the client.
func ParseKind(value string) (Kind, bool) {
	switch Kind(value) {
	case KindPlayer, KindMonster, KindProjectile:
		return Kind(value), true
	default:
		return "", false
	}
}

// Facing is one of the eight compass directions an actor can face.
type Facing string

const (
	FacingUp        Facing = "up"
	FacingDown      Facing = "down"
	FacingLeft      Facing = "left"
	FacingRight     Facing = "right"
	FacingUpLeft    Facing = "up-left"
	FacingUpRight   Facing = "up-right"
	FacingDownLeft  Facing = "down-left"
	FacingDownRight Facing = "down-right"

	DefaultFacing Facing = FacingDown
)

const diagonalFactor = 0.7071067811865476

// ParseFacing validates a facing string received from the client.
func ParseFacing(value string) (Facing, bool) {
	switch Facing(value) {
	case FacingUp, FacingDown, FacingLeft, FacingRight,
		FacingUpLeft, FacingUpRight, FacingDownLeft, FacingDownRight:
		return Facing(value), true
	default:
		return "", false
	}
}

// FacingVector returns a unit vector for the given facing.
func FacingVector(facing Facing) (float64, float64) {
	switch facing {
	case FacingUp:
		return 0, -1
	case FacingDown:
		return 0, 1
	case FacingLeft:
		return -1, 0
	case FacingRight:
		return 1, 0
	case FacingUpLeft:
		return -diagonalFactor, -diagonalFactor
	case FacingUpRight:
		return diagonalFactor, -diagonalFactor
	case FacingDownLeft:
		return -diagonalFactor, diagonalFactor
	case FacingDownRight:
		return diagonalFactor, diagonalFactor
	default:
		return 0, 1
	}
}

// DeriveFacing picks the compass direction that best matches the movement
// vector, falling back to the last known facing when idle.
func DeriveFacing(dx, dy float64, fallback Facing) Facing {
	if fallback == "" {
		fallback = DefaultFacing
	}

	const epsilon = 1e-6
	if math.Abs(dx) < epsilon {
		dx = 0
	}
	if math.Abs(dy) < epsilon {
		dy = 0
	}
	if dx == 0 && dy == 0 {
		return fallback
	}

	if dx == 0 {
		if dy > 0 {
			return FacingDown
		}
		return FacingUp
	}
	if dy == 0 {
		if dx > 0 {
			return FacingRight
		}
		return FacingLeft
	}
	if dx > 0 {
		if dy > 0 {
			return FacingDownRight
		}
		return FacingUpRight
	}
	if dy > 0 {
		return FacingDownLeft
	}
	return FacingUpLeft
}

// Progression carries the level-driven fields only players have.
type Progression struct {
	Level                   int     `json:"level"`
	XP                      int     `json:"xp"`
	MoveSpeedBonus          float64 `json:"moveSpeedBonus,omitempty"`
	AttackCooldownReduction float64 `json:"attackCooldownReduction,omitempty"`
	AttackRecoveryReduction float64 `json:"attackRecoveryReduction,omitempty"`
	RollUnlocked            bool    `json:"rollUnlocked,omitempty"`
}

// AIState is the coarse monster behaviour surface the sync core exposes.
// Pathfinding and target selection live outside the core; stun needs to be
// able to force the "stunned" state from combat resolution.
type AIState string

const (
	AIStateIdle    AIState = "idle"
	AIStateAggro   AIState = "aggro"
	AIStateStunned AIState = "stunned"
)

// Actor is the authoritative server-side record for a single entity.
// Timers are simulation ticks, never wall clock, so tests can step time.
type Actor struct {
	ID      string
	Kind    Kind
	Class   string
	X       float64
	Y       float64
	Facing  Facing
	HP      float64
	MaxHP   float64
	ArmorHP float64
	Radius  float64

	Stunned      bool
	Invulnerable bool
	Dead         bool

	RespawnAtTick    uint64
	ProtectedUntil   uint64
	StunUntilTick    uint64
	DespawnAtTick    uint64
	AttackScheduled  uint64 // tick a monster's wound-up attack lands; 0 = none
	AttackReadyAt    uint64
	AttackTargetID   string
	AbilityUntilTick uint64

	AI          AIState
	Progression Progression

	// Projectile motion and payload; zero for players and monsters.
	VelX   float64
	VelY   float64
	TTL    uint64
	Damage float64

	// OwnerID names the player a projectile belongs to.
	OwnerID string
}

// Alive reports whether the actor can currently participate in combat.
func (a *Actor) Alive() bool {
	return a != nil && !a.Dead && a.HP > 0
}

// Protected reports whether a spawn-protection window is still open.
func (a *Actor) Protected(tick uint64) bool {
	return a != nil && a.ProtectedUntil > tick
}

// ClampHP forces hit points back into [0, MaxHP].
func (a *Actor) ClampHP() {
	if a == nil {
		return
	}
	if a.HP < 0 {
		a.HP = 0
	}
	if a.HP > a.MaxHP {
		a.HP = a.MaxHP
	}
	if a.ArmorHP < 0 {
		a.ArmorHP = 0
	}
}

// State is the reduced, client-visible view of an actor. It is what the
// delta synchronizer diffs and what snapshots store.
type State struct {
	ID      string  `json:"id"`
	Kind    Kind    `json:"kind"`
	Class   string  `json:"class,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Facing  Facing  `json:"facing"`
	HP      float64 `json:"hp"`
	MaxHP   float64 `json:"maxHp"`
	ArmorHP float64 `json:"armorHp"`
	Radius  float64 `json:"radius"`

	Stunned      bool `json:"stunned,omitempty"`
	Invulnerable bool `json:"invulnerable,omitempty"`
	Dead         bool `json:"dead"`

	AI AIState `json:"ai,omitempty"`

	Level        int     `json:"level,omitempty"`
	XP           int     `json:"xp,omitempty"`
	MoveBonus    float64 `json:"moveSpeedBonus,omitempty"`
	RollUnlocked bool    `json:"rollUnlocked,omitempty"`
}

// Snapshot reduces the actor to its client-visible state.
func (a *Actor) Snapshot() State {
	if a == nil {
		return State{}
	}
	s := State{
		ID:           a.ID,
		Kind:         a.Kind,
		Class:        a.Class,
		X:            a.X,
		Y:            a.Y,
		Facing:       a.Facing,
		HP:           a.HP,
		MaxHP:        a.MaxHP,
		ArmorHP:      a.ArmorHP,
		Radius:       a.Radius,
		Stunned:      a.Stunned,
		Invulnerable: a.Invulnerable,
		Dead:         a.Dead,
	}
	if a.Kind == KindMonster {
		s.AI = a.AI
	}
	if a.Kind == KindPlayer {
		s.Level = a.Progression.Level
		s.XP = a.Progression.XP
		s.MoveBonus = a.Progression.MoveSpeedBonus
		s.RollUnlocked = a.Progression.RollUnlocked
	}
	return s
}

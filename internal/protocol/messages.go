package protocol

import (
	"hardmode/server/internal/entity"
)

// ProtocolVersion is bumped whenever a wire message changes shape.
const ProtocolVersion = 1

// Client → server message type tags.
const (
	TypeInput         = "input"
	TypeAttack        = "attack"
	TypeAttackMonster = "attackMonster"
	TypeAbility       = "executeAbility"
	TypePing          = "ping"
)

// Server → client message type tags.
const (
	TypeJoined          = "joined"
	TypeState           = "state"
	TypePlayerDamaged   = "playerDamaged"
	TypeMonsterDamaged  = "monsterDamaged"
	TypePlayerKilled    = "playerKilled"
	TypeMonsterKilled   = "monsterKilled"
	TypePlayerLevelUp   = "playerLevelUp"
	TypePlayerRespawned = "playerRespawned"
	TypePong            = "pong"
	TypeKicked          = "kicked"
)

// ClientMessage is implemented by every validated inbound message.
type ClientMessage interface {
	ClientType() string
}

// InputMessage carries one sequenced movement sample.
type InputMessage struct {
	Ver    int      `json:"ver,omitempty"`
	Type   string   `json:"type"`
	Seq    uint64   `json:"seq"`
	T      int64    `json:"t"`
	Keys   []string `json:"keys"`
	Facing string   `json:"facing"`
	Dt     float64  `json:"dt"`
}

func (InputMessage) ClientType() string { return TypeInput }

// AttackMessage claims a directional attack against players.
type AttackMessage struct {
	Ver    int     `json:"ver,omitempty"`
	Type   string  `json:"type"`
	Attack string  `json:"attackType"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Facing string  `json:"facing"`
	T      int64   `json:"t"`
}

func (AttackMessage) ClientType() string { return TypeAttack }

// AttackMonsterMessage claims a hit on a specific monster.
type AttackMonsterMessage struct {
	Ver       int     `json:"ver,omitempty"`
	Type      string  `json:"type"`
	MonsterID string  `json:"monsterId"`
	Attack    string  `json:"attackType"`
	T         int64   `json:"t"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (AttackMonsterMessage) ClientType() string { return TypeAttackMonster }

// AbilityMessage requests a server-controlled ability such as a dash.
type AbilityMessage struct {
	Ver     int    `json:"ver,omitempty"`
	Type    string `json:"type"`
	Ability string `json:"abilityType"`
}

func (AbilityMessage) ClientType() string { return TypeAbility }

// PingMessage feeds the latency tracker. RTT is the client's measured
// round trip from the previous ping/pong exchange, in milliseconds; zero on
// the first ping, before the client has a sample.
type PingMessage struct {
	Ver  int    `json:"ver,omitempty"`
	Type string `json:"type"`
	T    int64  `json:"t"`
	RTT  int64  `json:"rtt,omitempty"`
}

func (PingMessage) ClientType() string { return TypePing }

// UpdateType marks an entity payload as a full snapshot or a field diff.
type UpdateType string

const (
	UpdateFull  UpdateType = "full"
	UpdateDelta UpdateType = "delta"
)

// EntityUpdate is one entity's share of a state broadcast. The stability
// fields (id, kind, dead, hp, facing) ride along on every update so a lost
// delta can never leave a client unsure who an entity is or whether it
// lives. Everything else is pointer-optional and omitted when unchanged.
type EntityUpdate struct {
	ID         string         `json:"id"`
	Kind       entity.Kind    `json:"kind"`
	UpdateType UpdateType     `json:"_updateType"`
	Dead       bool           `json:"dead"`
	HP         float64        `json:"hp"`
	Facing     entity.Facing  `json:"facing"`
	X          *float64       `json:"x,omitempty"`
	Y          *float64       `json:"y,omitempty"`
	MaxHP      *float64       `json:"maxHp,omitempty"`
	ArmorHP    *float64       `json:"armorHp,omitempty"`
	Radius     *float64       `json:"radius,omitempty"`
	Class      *string        `json:"class,omitempty"`
	Stunned    *bool          `json:"stunned,omitempty"`
	Invuln     *bool          `json:"invulnerable,omitempty"`
	AI         *entity.AIState `json:"ai,omitempty"`
	Level      *int           `json:"level,omitempty"`
	XP         *int           `json:"xp,omitempty"`
	MoveBonus  *float64       `json:"moveSpeedBonus,omitempty"`
	RollUnlock *bool          `json:"rollUnlocked,omitempty"`
}

// StateMessage is the per-tick broadcast for one receiving client.
type StateMessage struct {
	Ver              int            `json:"ver"`
	Type             string         `json:"type"`
	Tick             uint64         `json:"tick"`
	ServerTime       int64          `json:"serverTime"`
	LastProcessedSeq uint64         `json:"lastProcessedSeq"`
	Players          []EntityUpdate `json:"players,omitempty"`
	Monsters         []EntityUpdate `json:"monsters,omitempty"`
	Projectiles      []EntityUpdate `json:"projectiles,omitempty"`
}

// JoinedMessage answers a successful join with the full starting picture.
type JoinedMessage struct {
	Ver        int            `json:"ver"`
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	TickRate   int            `json:"tickRate"`
	ConfigHash string         `json:"configHash"`
	Players    []EntityUpdate `json:"players"`
	Monsters   []EntityUpdate `json:"monsters,omitempty"`
}

// DamagedMessage reports a validated hit. The same shape serves players
// (type playerDamaged) and monsters (type monsterDamaged).
type DamagedMessage struct {
	Ver     int     `json:"ver"`
	Type    string  `json:"type"`
	ID      string  `json:"id"`
	Damage  float64 `json:"damage"`
	HP      float64 `json:"hp"`
	ArmorHP float64 `json:"armorHp"`
	Source  string  `json:"source"`
}

// PlayerKilledMessage announces a player death.
type PlayerKilledMessage struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	ID       string `json:"id"`
	KillerID string `json:"killerId,omitempty"`
}

// MonsterKilledMessage announces a monster death and the XP transfer.
type MonsterKilledMessage struct {
	Ver         int    `json:"ver"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	KillerID    string `json:"killerId,omitempty"`
	XPReward    int    `json:"xpReward"`
	KillerXP    int    `json:"killerXp"`
	KillerLevel int    `json:"killerLevel"`
}

// LevelUpMessage reports a crossed level threshold and its applied bonus.
type LevelUpMessage struct {
	Ver        int     `json:"ver"`
	Type       string  `json:"type"`
	PlayerID   string  `json:"playerId"`
	Level      int     `json:"level"`
	HP         float64 `json:"hp"`
	MaxHP      float64 `json:"maxHp"`
	Bonus      string  `json:"bonus,omitempty"`
	BonusValue float64 `json:"bonusValue,omitempty"`
}

// RespawnedMessage reports a player returning to the world.
type RespawnedMessage struct {
	Ver   int     `json:"ver"`
	Type  string  `json:"type"`
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	HP    float64 `json:"hp"`
	MaxHP float64 `json:"maxHp"`
}

// PongMessage echoes a ping so the client can close the RTT loop.
type PongMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	T          int64  `json:"t"`
	ServerTime int64  `json:"serverTime"`
}

// KickedMessage tells a client why its session is about to end.
type KickedMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

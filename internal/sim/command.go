package sim

import (
	"time"

	"hardmode/server/internal/protocol"
)

// Command is one inbound intent staged for the next tick. Exactly one of
// the payload pointers is set; the reader goroutines never touch world
// state directly.
type Command struct {
	ActorID    string
	ReceivedAt time.Time

	Input         *protocol.InputMessage
	Attack        *protocol.AttackMessage
	AttackMonster *protocol.AttackMonsterMessage
	Ability       *protocol.AbilityMessage
}

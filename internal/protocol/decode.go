package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"hardmode/server/internal/entity"
)

// ErrMalformed wraps every boundary rejection so callers can branch on it
// without inspecting message internals.
var ErrMalformed = errors.New("malformed message")

// Encoding selects the wire serialization for a connection. JSON is the
// default; clients may negotiate CBOR at connect time.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding validates an encoding name from the connect query.
func ParseEncoding(value string) (Encoding, bool) {
	switch value {
	case "", string(EncodingJSON):
		return EncodingJSON, true
	case string(EncodingCBOR):
		return EncodingCBOR, true
	default:
		return "", false
	}
}

// Marshal serializes an outbound message in the connection's encoding.
func (e Encoding) Marshal(v any) ([]byte, error) {
	if e == EncodingCBOR {
		return cbor.Marshal(v)
	}
	return json.Marshal(v)
}

func (e Encoding) unmarshal(data []byte, v any) error {
	if e == EncodingCBOR {
		return cbor.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

type envelope struct {
	Type string `json:"type"`
}

const (
	maxKeys        = 8
	maxDeltaTime   = 0.5 // seconds; anything slower is a stall, not a frame
	maxMessageSize = 4096
)

var validKeys = map[string]struct{}{
	"w": {}, "a": {}, "s": {}, "d": {},
	"up": {}, "down": {}, "left": {}, "right": {},
}

// ParseClient decodes and validates one inbound frame. It is the single
// typing boundary: everything past it may assume well-formed fields.
// All failures wrap ErrMalformed and leave no state behind.
func ParseClient(data []byte, enc Encoding) (ClientMessage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	if len(data) > maxMessageSize {
		return nil, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformed, maxMessageSize)
	}

	var env envelope
	if err := enc.unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeInput:
		var msg InputMessage
		if err := enc.unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := msg.validate(); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeAttack:
		var msg AttackMessage
		if err := enc.unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := msg.validate(); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeAttackMonster:
		var msg AttackMonsterMessage
		if err := enc.unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := msg.validate(); err != nil {
			return nil, err
		}
		return msg, nil
	case TypeAbility:
		var msg AbilityMessage
		if err := enc.unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if msg.Ability == "" {
			return nil, fmt.Errorf("%w: ability missing type", ErrMalformed)
		}
		return msg, nil
	case TypePing:
		var msg PingMessage
		if err := enc.unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if msg.RTT < 0 {
			return nil, fmt.Errorf("%w: negative rtt", ErrMalformed)
		}
		return msg, nil
	case "":
		return nil, fmt.Errorf("%w: missing type tag", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
}

func (m InputMessage) validate() error {
	if m.Seq == 0 {
		return fmt.Errorf("%w: input missing sequence", ErrMalformed)
	}
	if len(m.Keys) > maxKeys {
		return fmt.Errorf("%w: input carries %d keys", ErrMalformed, len(m.Keys))
	}
	for _, k := range m.Keys {
		if _, ok := validKeys[k]; !ok {
			return fmt.Errorf("%w: unknown key %q", ErrMalformed, k)
		}
	}
	if m.Facing != "" {
		if _, ok := entity.ParseFacing(m.Facing); !ok {
			return fmt.Errorf("%w: unknown facing %q", ErrMalformed, m.Facing)
		}
	}
	if m.Dt <= 0 || m.Dt > maxDeltaTime {
		return fmt.Errorf("%w: delta time %f out of range", ErrMalformed, m.Dt)
	}
	return nil
}

func (m AttackMessage) validate() error {
	if m.Attack == "" {
		return fmt.Errorf("%w: attack missing type", ErrMalformed)
	}
	if _, ok := entity.ParseFacing(m.Facing); !ok {
		return fmt.Errorf("%w: unknown facing %q", ErrMalformed, m.Facing)
	}
	if m.T <= 0 {
		return fmt.Errorf("%w: attack missing timestamp", ErrMalformed)
	}
	return nil
}

func (m AttackMonsterMessage) validate() error {
	if m.MonsterID == "" {
		return fmt.Errorf("%w: attackMonster missing monster id", ErrMalformed)
	}
	if m.Attack == "" {
		return fmt.Errorf("%w: attackMonster missing attack type", ErrMalformed)
	}
	if m.T <= 0 {
		return fmt.Errorf("%w: attackMonster missing timestamp", ErrMalformed)
	}
	return nil
}

package sim

// EventBuffer collects outbound event messages during a tick. It implements
// protocol.Sink; only the tick path writes it, so no locking is needed.
type EventBuffer struct {
	msgs []any
}

// Emit appends one event message.
func (b *EventBuffer) Emit(msg any) {
	if b != nil {
		b.msgs = append(b.msgs, msg)
	}
}

// Drain returns buffered events and clears the buffer.
func (b *EventBuffer) Drain() []any {
	if b == nil || len(b.msgs) == 0 {
		return nil
	}
	out := b.msgs
	b.msgs = nil
	return out
}

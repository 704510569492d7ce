package protocol

// Sink receives outbound event messages produced during a tick. The
// simulation buffers them and the hub flushes the buffer after each tick.
type Sink interface {
	Emit(msg any)
}

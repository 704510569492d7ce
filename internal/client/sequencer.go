// Package client implements the client half of the synchronization
// contract: input sequencing, local movement prediction, delta merging, and
// reconciliation against the authoritative broadcast. It exists server-side
// so bots and tests exercise the exact protocol a real client would, with
// the same movement step the server runs.
package client

import (
	"hardmode/server/internal/entity"
)

// DefaultRetention bounds how many unacknowledged inputs are kept for
// replay. A healthy connection acknowledges within a few ticks; hitting the
// bound means the session is beyond saving anyway.
const DefaultRetention = 1000

// PendingInput is one numbered, not-yet-acknowledged movement sample.
type PendingInput struct {
	Seq    uint64
	Keys   []string
	Facing entity.Facing
	Dt     float64
}

// Sequencer assigns strictly increasing sequence numbers to outgoing inputs
// and retains them until the server acknowledges processing.
type Sequencer struct {
	next      uint64
	pending   []PendingInput
	retention int
}

// NewSequencer returns a sequencer with the default retention bound.
func NewSequencer() *Sequencer {
	return &Sequencer{retention: DefaultRetention}
}

// Add numbers a new input and retains it for replay. Sequences start at 1;
// zero stays reserved as the "nothing processed" acknowledgment.
func (s *Sequencer) Add(keys []string, facing entity.Facing, dt float64) PendingInput {
	s.next++
	in := PendingInput{Seq: s.next, Keys: keys, Facing: facing, Dt: dt}
	if len(s.pending) >= s.retention {
		copy(s.pending, s.pending[1:])
		s.pending = s.pending[:len(s.pending)-1]
	}
	s.pending = append(s.pending, in)
	return in
}

// Ack discards every retained input at or below the processed sequence.
// Later inputs stay; they are the replay set.
func (s *Sequencer) Ack(processedSeq uint64) {
	keep := s.pending[:0]
	for _, in := range s.pending {
		if in.Seq > processedSeq {
			keep = append(keep, in)
		}
	}
	s.pending = keep
}

// Pending returns the retained inputs in sequence order.
func (s *Sequencer) Pending() []PendingInput {
	out := make([]PendingInput, len(s.pending))
	copy(out, s.pending)
	return out
}

// Len reports how many inputs await acknowledgment.
func (s *Sequencer) Len() int { return len(s.pending) }

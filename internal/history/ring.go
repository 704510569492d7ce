// Package history keeps the rolling record of authoritative world snapshots
// that lag compensation rewinds into. Entries are immutable once captured;
// lookups past the retention window always fail rather than guess.
package history

import (
	"sync"

	"hardmode/server/internal/entity"
)

// DefaultRetentionMillis bounds how far back the ring remembers. Anything
// older is useless: hit compensation is capped well under a second.
const DefaultRetentionMillis = 1000

// Snapshot is a timestamped reduced copy of every alive entity.
type Snapshot struct {
	At       int64 // unix milliseconds
	Tick     uint64
	Entities map[string]entity.State
}

// Lookup finds an entity within the snapshot.
func (s *Snapshot) Lookup(id string) (entity.State, bool) {
	if s == nil {
		return entity.State{}, false
	}
	st, ok := s.Entities[id]
	return st, ok
}

// Ring is a bounded-duration snapshot buffer. It is written only by the
// simulation path at the end of each tick; hit validation reads it.
type Ring struct {
	mu        sync.RWMutex
	snapshots []Snapshot
	retention int64
}

// NewRing creates a ring that retains snapshots for retentionMillis.
func NewRing(retentionMillis int64) *Ring {
	if retentionMillis <= 0 {
		retentionMillis = DefaultRetentionMillis
	}
	return &Ring{retention: retentionMillis}
}

// Capture appends one snapshot and evicts everything past retention.
// The entity states are copied; callers may keep mutating their actors.
func (r *Ring) Capture(at int64, tick uint64, states []entity.State) {
	if r == nil {
		return
	}
	entities := make(map[string]entity.State, len(states))
	for _, st := range states {
		entities[st.ID] = st
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, Snapshot{At: at, Tick: tick, Entities: entities})

	cutoff := at - r.retention
	firstLive := 0
	for firstLive < len(r.snapshots) && r.snapshots[firstLive].At < cutoff {
		firstLive++
	}
	if firstLive > 0 {
		r.snapshots = append(r.snapshots[:0], r.snapshots[firstLive:]...)
	}
}

// At returns the newest snapshot whose timestamp is at or before the
// requested time. It reports false when the requested time predates the
// retention window or no snapshot qualifies.
func (r *Ring) At(ts int64) (*Snapshot, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.snapshots) - 1; i >= 0; i-- {
		if r.snapshots[i].At <= ts {
			snap := r.snapshots[i]
			return &snap, true
		}
	}
	return nil, false
}

// Latest returns the most recent snapshot, if any.
func (r *Ring) Latest() (*Snapshot, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.snapshots) == 0 {
		return nil, false
	}
	snap := r.snapshots[len(r.snapshots)-1]
	return &snap, true
}

// Len reports how many snapshots are currently retained.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshots)
}

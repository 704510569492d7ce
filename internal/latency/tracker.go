// Package latency maintains smoothed round-trip estimates per connected
// player. Samples arrive asynchronously from the heartbeat path, so the
// tracker locks internally; readers on the simulation path only ever see a
// consistent smoothed value.
package latency

import (
	"sync"
	"time"
)

// smoothingWeight is the share of each new sample blended into the running
// average. Small enough that a single spiky ping cannot swing hit
// compensation.
const smoothingWeight = 0.1

type record struct {
	rtt     time.Duration
	samples int
}

// Tracker holds one exponentially smoothed RTT per player.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]*record
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*record)}
}

// Observe folds one round-trip sample into the player's running average.
// The first sample seeds the average directly. Non-positive samples are
// ignored; clock skew can produce them and they carry no information.
func (t *Tracker) Observe(playerID string, rtt time.Duration) {
	if t == nil || playerID == "" || rtt <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[playerID]
	if !ok {
		t.records[playerID] = &record{rtt: rtt, samples: 1}
		return
	}
	rec.rtt = time.Duration(float64(rec.rtt)*(1-smoothingWeight) + float64(rtt)*smoothingWeight)
	rec.samples++
}

// RTT returns the smoothed round-trip time, or zero when no sample exists.
func (t *Tracker) RTT(playerID string) time.Duration {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if rec, ok := t.records[playerID]; ok {
		return rec.rtt
	}
	return 0
}

// OneWay returns the derived single-direction latency (RTT / 2).
func (t *Tracker) OneWay(playerID string) time.Duration {
	return t.RTT(playerID) / 2
}

// Forget drops a player's record on disconnect.
func (t *Tracker) Forget(playerID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, playerID)
}

package latency

import (
	"testing"
	"time"
)

func TestObserveSeedsFirstSample(t *testing.T) {
	tr := NewTracker()
	tr.Observe("player-1", 80*time.Millisecond)

	if got := tr.RTT("player-1"); got != 80*time.Millisecond {
		t.Fatalf("expected first sample to seed rtt at 80ms, got %v", got)
	}
	if got := tr.OneWay("player-1"); got != 40*time.Millisecond {
		t.Fatalf("expected one-way latency 40ms, got %v", got)
	}
}

func TestObserveSmoothsSubsequentSamples(t *testing.T) {
	tr := NewTracker()
	tr.Observe("player-1", 100*time.Millisecond)
	tr.Observe("player-1", 200*time.Millisecond)

	// 100ms * 0.9 + 200ms * 0.1 = 110ms
	want := 110 * time.Millisecond
	got := tr.RTT("player-1")
	if got < want-time.Millisecond || got > want+time.Millisecond {
		t.Fatalf("expected smoothed rtt near %v, got %v", want, got)
	}
}

func TestObserveIgnoresGarbage(t *testing.T) {
	tr := NewTracker()
	tr.Observe("player-1", 100*time.Millisecond)
	tr.Observe("player-1", -30*time.Millisecond)
	tr.Observe("", 50*time.Millisecond)

	if got := tr.RTT("player-1"); got != 100*time.Millisecond {
		t.Fatalf("expected negative sample to be ignored, got %v", got)
	}
	if got := tr.RTT(""); got != 0 {
		t.Fatalf("expected no record for empty id, got %v", got)
	}
}

func TestForget(t *testing.T) {
	tr := NewTracker()
	tr.Observe("player-1", 100*time.Millisecond)
	tr.Forget("player-1")

	if got := tr.RTT("player-1"); got != 0 {
		t.Fatalf("expected forgotten player to report zero rtt, got %v", got)
	}
}

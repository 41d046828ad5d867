package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	for _, d := range []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
	} {
		tracker.Observe(d)
	}

	if tracker.Count() != 5 {
		t.Fatalf("Count = %d, want 5", tracker.Count())
	}
	if p95 := tracker.Percentile(95); p95 < 40*time.Millisecond {
		t.Fatalf("Percentile(95) = %v, want >= 40ms", p95)
	}
	if p0 := tracker.Percentile(0); p0 != 10*time.Millisecond {
		t.Fatalf("Percentile(0) = %v, want 10ms", p0)
	}
}

func TestLatencyTrackerWindowEviction(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("Count = %d, want window size 3", tracker.Count())
	}
	// Only the newest three samples survive.
	if p100 := tracker.Percentile(100); p100 != 9*time.Millisecond {
		t.Fatalf("Percentile(100) = %v, want 9ms", p100)
	}
	if p0 := tracker.Percentile(0); p0 != 7*time.Millisecond {
		t.Fatalf("Percentile(0) = %v, want 7ms", p0)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(0)
	if got := tracker.Percentile(95); got != 0 {
		t.Fatalf("Percentile on empty tracker = %v, want 0", got)
	}
}

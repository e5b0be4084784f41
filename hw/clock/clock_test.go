package clock

import (
	"testing"
	"time"
)

func TestMonotonicNeverGoesBack(t *testing.T) {
	var src Monotonic
	prev := src.Nanotime()
	for range 1000 {
		now := src.Nanotime()
		if now < prev {
			t.Fatalf("Nanotime went back: %d after %d", now, prev)
		}
		prev = now
	}
}

func TestManual(t *testing.T) {
	m := NewManual(100)
	if got := m.Nanotime(); got != 100 {
		t.Fatalf("Nanotime() = %d, want 100", got)
	}
	m.Advance(2 * time.Microsecond)
	if got := m.Nanotime(); got != 2100 {
		t.Fatalf("Nanotime() after Advance = %d, want 2100", got)
	}
	m.Set(5)
	if got := m.Nanotime(); got != 5 {
		t.Fatalf("Nanotime() after Set = %d, want 5", got)
	}
}

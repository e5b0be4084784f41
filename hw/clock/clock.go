// Package clock provides the monotonic time sources devices derive their
// counters from.
package clock

import (
	"sync"
	"time"
)

// Source returns monotonic timestamps in nanoseconds. Values are only
// meaningful relative to each other.
type Source interface {
	Nanotime() int64
}

// Manual is a Source that only moves when told to. It is safe for concurrent
// use.
type Manual struct {
	mu  sync.Mutex
	now int64
}

func NewManual(start int64) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Nanotime() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += int64(d)
	m.mu.Unlock()
}

// Set sets the clock to an absolute timestamp.
func (m *Manual) Set(ns int64) {
	m.mu.Lock()
	m.now = ns
	m.mu.Unlock()
}

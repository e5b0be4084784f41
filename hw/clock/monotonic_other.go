//go:build !linux

package clock

// Monotonic reads the Go runtime monotonic clock, anchored at process start.
type Monotonic struct{}

func (Monotonic) Nanotime() int64 { return fallbackNanotime() }

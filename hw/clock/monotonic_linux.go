package clock

import "golang.org/x/sys/unix"

// Monotonic reads CLOCK_MONOTONIC. Timestamps are comparable across processes
// of the same boot, which keeps restored snapshots meaningful on the host that
// produced them.
type Monotonic struct{}

func (Monotonic) Nanotime() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return fallbackNanotime()
	}
	return ts.Nano()
}

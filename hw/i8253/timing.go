package i8253

import "time"

// Counters are not clocked. Their value is derived from the time elapsed
// since the last reset, as if the counter had been decremented at every tick.

// counter returns the value a counter reloaded with start at ts would hold at
// now. start must not be 0. Time going backwards, as seen after restoring a
// snapshot taken on another host, counts as no elapsed time.
func counter(start uint16, ts, now, nsPerTick int64) uint16 {
	delta := now - ts
	if delta < 0 {
		delta = 0
	}
	ticks := uint64(delta / nsPerTick)
	return start - uint16(ticks%uint64(start))
}

func (c *channel) counter(now, nsPerTick int64) uint16 {
	return counter(c.start, c.ts, now, nsPerTick)
}

// latch freezes the current count in the output latch.
func (c *channel) latch(now, nsPerTick int64) {
	c.olatch = c.counter(now, nsPerTick)
	c.lastR = PhaseLow
}

// period returns the time a counter reloaded with start takes to reach
// terminal count.
func period(start uint16, nsPerTick int64) time.Duration {
	return time.Duration(int64(start) * nsPerTick)
}

// firstHalf reports whether a square wave counter is in the first half of its
// period, when its output is high.
func (c *channel) firstHalf(now, nsPerTick int64) bool {
	return c.counter(now, nsPerTick) > c.start/2
}

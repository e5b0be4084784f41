package evsched

import (
	"container/heap"
	"time"
)

// A Timer is a one-shot timer owned by a Loop. All methods must be called
// with the loop registration lock held.
type Timer struct {
	loop  *Loop
	fn    func()
	when  time.Time
	index int // heap index, -1 when disarmed
	gen   uint64
	id    uint64

	// set while the callback runs, and once it has been re-armed or
	// cancelled from anywhere during that time
	inCallback bool
	touched    bool
}

// ID returns the handle identifying the timer within its loop.
func (t *Timer) ID() uint64 { return t.id }

// Add arms the timer to fire once d has elapsed. Arming a pending timer
// reschedules it.
func (t *Timer) Add(d time.Duration) {
	t.gen++
	t.touched = t.inCallback
	t.when = time.Now().Add(d)
	if t.index >= 0 {
		heap.Fix(&t.loop.timers, t.index)
	} else {
		heap.Push(&t.loop.timers, t)
	}
	if t.loop.timers[0] == t {
		t.loop.kick()
	}
}

// Del disarms the timer. It is a no-op when the timer is not pending.
func (t *Timer) Del() {
	t.gen++
	t.touched = t.inCallback
	if t.index >= 0 {
		heap.Remove(&t.loop.timers, t.index)
	}
}

// Stale reports whether, while its callback runs, the timer has been re-armed
// or cancelled since it expired. A callback that drops the lock must check it
// before acting on the expiry. It is false outside of the callback.
func (t *Timer) Stale() bool { return t.inCallback && t.touched }

// Pending reports whether the timer is armed.
func (t *Timer) Pending() bool { return t.index >= 0 }

// Deadline returns the time the timer fires at, or the zero time when it is
// not pending.
func (t *Timer) Deadline() time.Time {
	if t.index < 0 {
		return time.Time{}
	}
	return t.when
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].id < h[j].id
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

func (h timerHeap) next() (time.Time, bool) {
	if len(h) == 0 {
		return time.Time{}, false
	}
	return h[0].when, true
}

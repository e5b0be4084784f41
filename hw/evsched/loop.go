// Package evsched implements the event loop owning a VM's timers.
//
// A Loop runs on a single goroutine (the owning goroutine). Timers are armed
// and cancelled under the loop registration lock, which callers take with
// Lock/Unlock; timer callbacks and submitted tasks run on the owning goroutine
// without the lock held.
package evsched

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"vmtimer/emu/log"
)

var (
	// ErrStopped is returned when submitting to a loop that has exited.
	ErrStopped = errors.New("evsched: loop stopped")

	// ErrRunning is returned when Run is called on a loop that already runs.
	ErrRunning = errors.New("evsched: loop already running")
)

// IngressSize is the capacity of the task queue feeding the owning goroutine.
const IngressSize = 1

type Loop struct {
	mu     sync.Mutex // registration lock
	timers timerHeap
	nextID uint64

	wake    chan struct{}
	ingress chan func()
	done    chan struct{}

	running  atomic.Bool
	stopOnce sync.Once

	fired atomic.Uint64
	tasks atomic.Uint64
}

func New() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		ingress: make(chan func(), IngressSize),
		done:    make(chan struct{}),
	}
}

// Lock takes the registration lock. Timer methods require it.
func (l *Loop) Lock() { l.mu.Lock() }

func (l *Loop) Unlock() { l.mu.Unlock() }

// NewTimer registers a one-shot timer calling fn on the owning goroutine
// each time it expires. The timer starts disarmed.
func (l *Loop) NewTimer(fn func()) *Timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	return &Timer{loop: l, fn: fn, index: -1, id: l.nextID}
}

// Running reports whether the owning goroutine is dispatching events.
func (l *Loop) Running() bool { return l.running.Load() }

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Submit queues fn for execution on the owning goroutine. It blocks until fn
// is queued, ctx is done or the loop stopped. It does not wait for fn to run.
func (l *Loop) Submit(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}

	select {
	case l.ingress <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

type Stats struct {
	Fired uint64 // timer callbacks run
	Tasks uint64 // submitted tasks run
}

func (l *Loop) Stats() Stats {
	return Stats{Fired: l.fired.Load(), Tasks: l.tasks.Load()}
}

// Run dispatches timers and submitted tasks until ctx is done. A Loop can
// only be run once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	select {
	case <-l.done:
		l.running.Store(false)
		return ErrStopped
	default:
	}
	defer func() {
		l.running.Store(false)
		l.stopOnce.Do(func() { close(l.done) })
		log.ModSched.DebugZ("loop exited").Uint("fired", l.fired.Load()).Uint("tasks", l.tasks.Load()).End()
	}()

	tm := time.NewTimer(time.Hour)
	defer tm.Stop()

	for {
		l.dispatchExpired(time.Now())

		var expiry <-chan time.Time
		l.mu.Lock()
		next, ok := l.timers.next()
		l.mu.Unlock()
		if ok {
			d := time.Until(next)
			if d <= 0 {
				continue
			}
			tm.Reset(d)
			expiry = tm.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-expiry:
		case fn := <-l.ingress:
			fn()
			l.tasks.Add(1)
		}
	}
}

type expired struct {
	t   *Timer
	gen uint64
}

// dispatchExpired runs the callbacks of all timers expired at now.
func (l *Loop) dispatchExpired(now time.Time) {
	var due []expired

	l.mu.Lock()
	for len(l.timers) > 0 && !l.timers[0].when.After(now) {
		t := heap.Pop(&l.timers).(*Timer)
		due = append(due, expired{t, t.gen})
	}
	l.mu.Unlock()

	for _, e := range due {
		// Skip timers re-armed or cancelled since they were popped.
		l.mu.Lock()
		stale := e.t.gen != e.gen
		if !stale {
			e.t.inCallback, e.t.touched = true, false
		}
		l.mu.Unlock()
		if stale {
			continue
		}
		e.t.fn()

		l.mu.Lock()
		e.t.inCallback = false
		l.mu.Unlock()
		l.fired.Add(1)
	}
}

func (l *Loop) kick() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Package devpipe hands requests from vCPU goroutines over to the goroutine
// owning a VM's event loop.
package devpipe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"vmtimer/emu/log"
	"vmtimer/hw/evsched"
)

// ErrTimeout is returned by Send when the owner did not handle the request in
// time. The request is dropped: its handler never runs.
var ErrTimeout = errors.New("devpipe: timed out")

// A Pipe delivers values of type T to a handler running on the owning
// goroutine of an event loop. Senders are serialized, so at most one request
// is in flight at any time.
type Pipe[T any] struct {
	name    string
	loop    *evsched.Loop
	handler func(T)

	mu sync.Mutex // serializes senders, never the loop registration lock

	sent     atomic.Uint64
	timeouts atomic.Uint64
}

func New[T any](name string, loop *evsched.Loop, handler func(T)) *Pipe[T] {
	return &Pipe[T]{name: name, loop: loop, handler: handler}
}

// Send submits v and waits until the handler has run on the owning goroutine,
// for at most timeout overall.
func (p *Pipe[T]) Send(v T, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Whoever moves state out of pending first decides: the owner runs the
	// handler, or the sender drops the request.
	var state atomic.Int32
	done := make(chan struct{})
	err := p.loop.Submit(ctx, func() {
		if !state.CompareAndSwap(pending, taken) {
			log.ModSched.DebugZ("skipping dropped request").String("pipe", p.name).End()
			return
		}
		p.handler(v)
		close(done)
	})
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		p.timeouts.Add(1)
		return fmt.Errorf("%w: %s: queue full", ErrTimeout, p.name)
	case err != nil:
		return fmt.Errorf("devpipe: %s: %w", p.name, err)
	}

	select {
	case <-done:
		p.sent.Add(1)
		log.ModSched.DebugZ("request handled").String("pipe", p.name).End()
		return nil
	case <-ctx.Done():
		if state.CompareAndSwap(pending, dropped) {
			p.timeouts.Add(1)
			return fmt.Errorf("%w: %s: no acknowledgment", ErrTimeout, p.name)
		}
		// The handler has started, it can't be dropped anymore.
		<-done
		p.sent.Add(1)
		return nil
	case <-p.loop.Done():
		return fmt.Errorf("devpipe: %s: %w", p.name, evsched.ErrStopped)
	}
}

// request states
const (
	pending int32 = iota
	taken
	dropped
)

// Sent returns the number of acknowledged requests.
func (p *Pipe[T]) Sent() uint64 { return p.sent.Load() }

// Timeouts returns the number of requests that timed out.
func (p *Pipe[T]) Timeouts() uint64 { return p.timeouts.Load() }

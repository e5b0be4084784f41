package evsched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func runLoop(t *testing.T) *Loop {
	t.Helper()

	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	})
	return l
}

func TestTimerFires(t *testing.T) {
	l := runLoop(t)

	fired := make(chan struct{}, 1)
	tm := l.NewTimer(func() { fired <- struct{}{} })

	l.Lock()
	tm.Add(time.Millisecond)
	if !tm.Pending() {
		t.Error("timer not pending after Add")
	}
	l.Unlock()

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire")
	}

	l.Lock()
	defer l.Unlock()
	if tm.Pending() {
		t.Error("one-shot timer still pending after firing")
	}
}

func TestTimerDel(t *testing.T) {
	l := runLoop(t)

	fired := make(chan struct{}, 1)
	tm := l.NewTimer(func() { fired <- struct{}{} })

	l.Lock()
	tm.Add(20 * time.Millisecond)
	tm.Del()
	tm.Del()
	if tm.Pending() {
		t.Error("timer pending after Del")
	}
	l.Unlock()

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTimerRearmFromCallback(t *testing.T) {
	l := runLoop(t)

	const want = 5
	var (
		n    int
		tm   *Timer
		done = make(chan struct{})
	)
	tm = l.NewTimer(func() {
		n++
		if n == want {
			close(done)
			return
		}
		l.Lock()
		tm.Add(time.Millisecond)
		l.Unlock()
	})

	l.Lock()
	tm.Add(time.Millisecond)
	l.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timer fired %d times, want %d", n, want)
	}
}

func TestTimerStale(t *testing.T) {
	l := New()

	var stale []bool
	var tm *Timer
	tm = l.NewTimer(func() {
		l.Lock()
		defer l.Unlock()
		stale = append(stale, tm.Stale())
		tm.Del()
		stale = append(stale, tm.Stale())
	})

	l.Lock()
	tm.Add(0)
	l.Unlock()
	l.dispatchExpired(time.Now().Add(time.Second))

	l.Lock()
	stale = append(stale, tm.Stale())
	l.Unlock()

	want := []bool{false, true, false}
	if diff := cmp.Diff(want, stale); diff != "" {
		t.Errorf("Stale() mismatch (-want +got):\n%s", diff)
	}
}

func TestTimerOrder(t *testing.T) {
	l := New()

	var got []int
	mk := func(i int) *Timer { return l.NewTimer(func() { got = append(got, i) }) }
	t1, t2, t3 := mk(1), mk(2), mk(3)

	l.Lock()
	t3.Add(3 * time.Millisecond)
	t1.Add(time.Millisecond)
	t2.Add(2 * time.Millisecond)
	t3.Add(0) // reschedule ahead of everyone
	l.Unlock()

	l.dispatchExpired(time.Now().Add(time.Second))

	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("fired %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fired %v, want %v", got, want)
		}
	}
}

func TestSubmit(t *testing.T) {
	l := runLoop(t)

	ran := make(chan struct{})
	if err := l.Submit(context.Background(), func() { close(ran) }); err != nil {
		t.Fatalf("Submit() = %v", err)
	}
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("submitted task did not run")
	}
}

func TestSubmitNoOwner(t *testing.T) {
	l := New()

	// The first task fills the ingress queue.
	if err := l.Submit(context.Background(), func() {}); err != nil {
		t.Fatalf("Submit() = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Submit(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit() on full queue = %v, want DeadlineExceeded", err)
	}
}

func TestRunOnce(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if err := l.Run(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("second Run() = %v, want ErrStopped", err)
	}
	if err := l.Submit(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit() after stop = %v, want ErrStopped", err)
	}
}

package i8253

import (
	"context"
	"errors"
	"testing"
	"time"

	"vmtimer/emu/log"
	"vmtimer/hw/clock"
	"vmtimer/hw/evsched"
	"vmtimer/hw/hwio"
	"vmtimer/hw/irq"
)

// testTick is long enough for timers armed by the tests to never expire
// while they run.
const testTick = int64(10 * time.Millisecond)

const testVM = 1

type testPIT struct {
	*PIT
	t    *testing.T
	clk  *clock.Manual
	irq  *irq.Counter
	loop *evsched.Loop
	bus  *hwio.Table
}

type testOpts struct {
	run     bool // run the owning loop
	timeout time.Duration
	line    irq.Line // defaults to the testPIT irq counter
}

func newTestPIT(t *testing.T, opts testOpts) *testPIT {
	t.Helper()
	log.Disable()
	t.Cleanup(log.Enable)

	tp := &testPIT{
		t:    t,
		clk:  clock.NewManual(1_000_000_000),
		irq:  irq.NewCounter(),
		loop: evsched.New(),
		bus:  hwio.NewTable("test"),
	}
	var line irq.Line = tp.irq
	if opts.line != nil {
		line = opts.line
	}
	tp.PIT = New(testVM, tp.loop, line, tp.clk, Config{TickNs: testTick, ResetTimeout: opts.timeout})
	if err := tp.MapPorts(tp.bus); err != nil {
		t.Fatal(err)
	}

	if opts.run {
		ctx, cancel := context.WithCancel(context.Background())
		errc := make(chan error, 1)
		go func() { errc <- tp.loop.Run(ctx) }()
		t.Cleanup(func() {
			cancel()
			if err := <-errc; !errors.Is(err, context.Canceled) {
				t.Errorf("loop.Run() = %v", err)
			}
		})
	}
	return tp
}

func (tp *testPIT) out(port uint16, vals ...uint8) {
	tp.t.Helper()
	for _, v := range vals {
		if irq := tp.bus.Out8(port, v); irq != 0xFF {
			tp.t.Fatalf("Out8(%02X, %02X) = %02X, want NoIRQ", port, v, irq)
		}
	}
}

func (tp *testPIT) wantIn(port uint16, want ...uint8) {
	tp.t.Helper()
	for i, w := range want {
		if got := tp.bus.In8(port); got != w {
			tp.t.Errorf("In8(%02X) #%d = %02X, want %02X", port, i, got, w)
		}
	}
}

func (tp *testPIT) advance(ticks int64) {
	tp.clk.Advance(time.Duration(ticks * testTick))
}

// expire runs the terminal count callback of counter i, as the loop does
// when its timer expires.
func (tp *testPIT) expire(i uint8) {
	tp.fire(i, tp.chans[i].timer)
}

// gatedLine blocks every interrupt assertion until it is let through.
type gatedLine struct {
	asserted chan struct{}
	gate     chan struct{}
}

func newGatedLine() *gatedLine {
	return &gatedLine{
		asserted: make(chan struct{}, 8),
		gate:     make(chan struct{}),
	}
}

// release lets one blocked assertion through.
func (g *gatedLine) release() { g.gate <- struct{}{} }

// open lets all pending and future assertions through.
func (g *gatedLine) open() { close(g.gate) }

func (g *gatedLine) line() irq.Line {
	return irq.LineFunc(func(_ uint32, _, _ uint8, level bool) {
		if !level {
			return
		}
		select {
		case g.asserted <- struct{}{}:
		default:
		}
		<-g.gate
	})
}

// waitAsserted waits for the loop to be blocked pulsing the line.
func (g *gatedLine) waitAsserted(t *testing.T) {
	t.Helper()
	select {
	case <-g.asserted:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire")
	}
}

// waitFired waits until n timer callbacks have returned.
func (tp *testPIT) waitFired(n uint64) {
	tp.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for tp.loop.Stats().Fired < n {
		if time.Now().After(deadline) {
			tp.t.Fatalf("%d timer callbacks returned, want %d", tp.loop.Stats().Fired, n)
		}
		time.Sleep(time.Millisecond)
	}
}

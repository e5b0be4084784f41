// Package i8253 emulates the legacy i8253/8254 programmable interval timer.
//
// Counters are not clocked tick by tick: their values are computed from the
// monotonic time elapsed since they were last reloaded, and their terminal
// count is an evsched timer. Guest port accesses are serviced synchronously by
// the vCPU goroutines. Timers are only armed and cancelled by the goroutine
// owning the event loop, to which vCPUs hand reload requests over.
package i8253

import (
	"fmt"
	"sync"
	"time"

	"vmtimer/emu/log"
	"vmtimer/hw/clock"
	"vmtimer/hw/devpipe"
	"vmtimer/hw/evsched"
	"vmtimer/hw/hwdefs"
	"vmtimer/hw/hwio"
	"vmtimer/hw/irq"
	"vmtimer/hw/snapshot"
)

var modPIT = log.NewModule("pit")

// DefaultResetTimeout bounds the time a vCPU waits for a counter reload to be
// acknowledged by the owning goroutine.
const DefaultResetTimeout = 5 * time.Second

type Config struct {
	// TickNs is the duration of a counter tick in ns. Zero selects the real
	// hardware tick, hwdefs.NsPerTick.
	TickNs int64

	// ResetTimeout is the maximum time a counter reload may block a vCPU.
	// Zero selects DefaultResetTimeout.
	ResetTimeout time.Duration
}

// PIT is the i8253 of a single VM.
type PIT struct {
	loop *evsched.Loop
	line irq.Line
	clk  clock.Source

	tick         int64
	resetTimeout time.Duration
	resets       *devpipe.Pipe[uint8]

	// Lock order: loop registration lock, then mu.
	mu    sync.Mutex
	chans [snapshot.NumPITChannels]channel
}

// New creates the PIT of VM vmID. Its timers run on loop and fire interrupts
// on line. Channel 0 is marked in use, so StartAll arms it.
func New(vmID uint32, loop *evsched.Loop, line irq.Line, clk clock.Source, cfg Config) *PIT {
	p := &PIT{
		loop:         loop,
		line:         line,
		clk:          clk,
		tick:         cfg.TickNs,
		resetTimeout: cfg.ResetTimeout,
	}
	if p.tick <= 0 {
		p.tick = hwdefs.NsPerTick
	}
	if p.resetTimeout <= 0 {
		p.resetTimeout = DefaultResetTimeout
	}
	p.resets = devpipe.New("i8253 reset", loop, p.reset)

	for i := range p.chans {
		p.chans[i].timer = p.newTimer(uint8(i))
	}
	p.Init(vmID)
	return p
}

// Init puts all counters back to their power-on state, disarmed, and
// associates them with vmID.
func (p *PIT) Init(vmID uint32) {
	p.loop.Lock()
	defer p.loop.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clk.Nanotime()
	for i := range p.chans {
		p.chans[i].timer.Del()
		p.chans[i].init(vmID, now)
	}
	p.chans[0].inUse = true

	modPIT.DebugZ("initialized").Hex32("vm", vmID).End()
}

// MapPorts maps the counter, control and port B registers on t.
func (p *PIT) MapPorts(t *hwio.Table) error {
	if err := t.Map(hwdefs.PITCounter0, hwdefs.PITControl, "i8253", p.ExitPIT); err != nil {
		return fmt.Errorf("i8253: %w", err)
	}
	portB := &hwio.Device{Name: "i8253 misc", Size: 1, InCb: p.portBIn, OutCb: p.portBOut}
	if err := t.MapDevice(hwdefs.PortB, portB); err != nil {
		return fmt.Errorf("i8253: %w", err)
	}
	return nil
}

// Tick returns the duration of a counter tick, in ns.
func (p *PIT) Tick() int64 { return p.tick }

// ResetStats returns the number of acknowledged and of timed out reload
// requests.
func (p *PIT) ResetStats() (sent, timeouts uint64) {
	return p.resets.Sent(), p.resets.Timeouts()
}

// State returns a copy of the counters registers.
func (p *PIT) State() snapshot.PIT {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s snapshot.PIT
	for i := range p.chans {
		c := &p.chans[i]
		s.Channels[i] = snapshot.PITChannel{
			Mode:   uint8(c.mode),
			Start:  c.start,
			ILatch: c.ilatch,
			LastW:  uint8(c.lastW),
			OLatch: c.olatch,
			LastR:  uint8(c.lastR),
			RBS:    c.rbs,
			InUse:  c.inUse,
			State:  c.state,
			TS:     c.ts,
			VMID:   c.vmID,
			Timer:  c.timer.ID(),
		}
	}
	return s
}

// Armed reports which counters have a pending timer.
func (p *PIT) Armed() [snapshot.NumPITChannels]bool {
	p.loop.Lock()
	defer p.loop.Unlock()

	var armed [snapshot.NumPITChannels]bool
	for i := range p.chans {
		armed[i] = p.chans[i].timer.Pending()
	}
	return armed
}

// Deadlines returns the time each counter reaches terminal count, or the zero
// time for disarmed counters.
func (p *PIT) Deadlines() [snapshot.NumPITChannels]time.Time {
	p.loop.Lock()
	defer p.loop.Unlock()

	var dl [snapshot.NumPITChannels]time.Time
	for i := range p.chans {
		dl[i] = p.chans[i].timer.Deadline()
	}
	return dl
}

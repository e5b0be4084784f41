package i8253

import (
	"vmtimer/hw/evsched"
	"vmtimer/hw/hwdefs"
)

// reset reloads counter i and arms its terminal count timer. It runs on the
// goroutine owning the loop.
func (p *PIT) reset(i uint8) {
	if int(i) >= len(p.chans) {
		modPIT.ErrorZ("reset of invalid counter").Int("counter", int(i)).End()
		return
	}

	p.loop.Lock()
	defer p.loop.Unlock()
	p.resetLocked(i)
}

// resetLocked is reset, with the loop registration lock held.
func (p *PIT) resetLocked(i uint8) {
	p.mu.Lock()
	c := &p.chans[i]
	c.timer.Del()
	c.inUse = true
	c.state = false
	c.ts = p.clk.Nanotime()
	// A reset in the middle of a two-byte access restarts it at the low
	// byte, even when it only rearms the counter (StartAll, Restore).
	c.lastW = PhaseLow
	c.lastR = PhaseLow
	d := period(c.start, p.tick)
	c.timer.Add(d)
	mode := c.mode
	p.mu.Unlock()

	modPIT.DebugZ("counter reset").
		Int("counter", int(i)).
		Stringer("mode", mode).
		Duration("period", d).
		End()
}

// newTimer returns a disarmed terminal count timer for counter i.
func (p *PIT) newTimer(i uint8) *evsched.Timer {
	var t *evsched.Timer
	t = p.loop.NewTimer(func() { p.fire(i, t) })
	return t
}

// fire handles the expiry of t, the terminal count timer of counter i: it
// pulses IRQ 0, then either rearms the counter or, in inttc mode, latches its
// output high.
func (p *PIT) fire(i uint8, t *evsched.Timer) {
	p.mu.Lock()
	vmID := p.chans[i].vmID
	p.mu.Unlock()

	p.line.Assert(vmID, hwdefs.PITIRQ, hwdefs.PITPin)
	p.line.Deassert(vmID, hwdefs.PITIRQ, hwdefs.PITPin)

	p.loop.Lock()
	defer p.loop.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()

	// Stopped or reloaded while the line was pulsed.
	c := &p.chans[i]
	if t != c.timer || t.Stale() {
		modPIT.DebugZ("expiry superseded").Int("counter", int(i)).End()
		return
	}
	if c.mode != ModeIntTC {
		c.timer.Add(period(c.start, p.tick))
		return
	}
	c.state = true
}

// requestReset hands a reload of counter i over to the owning goroutine and
// waits for it to be done. A request that times out is dropped.
func (p *PIT) requestReset(i uint8) {
	if err := p.resets.Send(i, p.resetTimeout); err != nil {
		modPIT.WarnZ("counter reset dropped").
			Int("counter", int(i)).
			Error("err", err).
			End()
	}
}

// StartAll rearms the counters that have been in use.
func (p *PIT) StartAll() {
	p.loop.Lock()
	defer p.loop.Unlock()

	for i := range p.chans {
		p.mu.Lock()
		inUse := p.chans[i].inUse
		p.mu.Unlock()
		if inUse {
			p.resetLocked(uint8(i))
		}
	}
}

// StopAll disarms all counters.
func (p *PIT) StopAll() {
	p.loop.Lock()
	defer p.loop.Unlock()

	for i := range p.chans {
		p.chans[i].timer.Del()
	}
}

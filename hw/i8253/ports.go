package i8253

import (
	"vmtimer/hw/hwdefs"
	"vmtimer/hw/hwio"
)

// ExitPIT services guest accesses to the counter and control ports.
func (p *PIT) ExitPIT(x *hwio.Exit) uint8 {
	if x.Port == hwdefs.PITControl {
		if x.Dir == hwio.DirOut {
			p.writeControl(uint8(x.Input()))
		} else {
			modPIT.WarnZ("read from control port unsupported").End()
			x.SetReturn(0)
		}
		return hwdefs.NoIRQ
	}

	sel := x.Port - hwdefs.PITCounter0
	if x.Port < hwdefs.PITCounter0 || int(sel) >= len(p.chans) {
		modPIT.ErrorZ("access to invalid port").Stringer("exit", x).End()
		if x.Dir == hwio.DirIn {
			x.SetReturn(0xFFFFFFFF)
		}
		return hwdefs.NoIRQ
	}

	if x.Dir == hwio.DirOut {
		p.writeData(uint8(sel), uint8(x.Input()))
	} else {
		x.SetReturn(uint32(p.readData(uint8(sel))))
	}
	return hwdefs.NoIRQ
}

func (p *PIT) writeControl(v uint8) {
	sel := hwio.Bits8(v, 6, 2)
	if sel == selReadback {
		p.readback(v)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	c := &p.chans[sel]
	rw := v & ctrlRWMask
	if rw == ctrlLatch {
		c.latch(p.clk.Nanotime(), p.tick)
		return
	}
	if rw != ctrlRW16 {
		modPIT.WarnZ("unsupported rw mode").
			Int("counter", int(sel)).
			Hex8("rw", rw).
			End()
	}
	c.mode = Mode(hwio.Bits8(v, 1, 3))
}

// readback handles the readback command. Status and count latching are
// enabled by clearing their bit, for the counters whose bit is set.
func (p *PIT) readback(v uint8) {
	now := p.clk.Nanotime()

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.chans {
		if v&rbChannel[i] == 0 {
			continue
		}
		if v&rbStatus == 0 {
			p.chans[i].rbs = true
		}
		if v&rbCount == 0 {
			p.chans[i].latch(now, p.tick)
		}
	}
}

func (p *PIT) writeData(sel, v uint8) {
	p.mu.Lock()
	c := &p.chans[sel]
	if !c.write(v) {
		p.mu.Unlock()
		return
	}
	mode, start := c.mode, c.start
	p.mu.Unlock()

	modPIT.DebugZ("counter reloaded").
		Int("counter", int(sel)).
		Stringer("mode", mode).
		Uint("start", uint64(start)).
		End()

	p.requestReset(sel)
}

func (p *PIT) readData(sel uint8) uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chans[sel].read()
}

// portBOut2 is the bit of port B reflecting the output of counter 2.
const portBOut2 = 5

func (p *PIT) portBOut(x *hwio.Exit) uint8 {
	modPIT.DebugZ("discarding data written to port B").Hex32("data", x.Input()).End()
	return hwdefs.NoIRQ
}

// portBIn returns port B, of which only the counter 2 output bit is emulated.
func (p *PIT) portBIn(x *hwio.Exit) uint8 {
	p.mu.Lock()
	c := &p.chans[2]
	var ret uint8
	switch c.mode {
	case ModeIntTC:
		if c.state {
			hwio.SetBit8(&ret, portBOut2)
		}
	case ModeSqWave:
		if c.firstHalf(p.clk.Nanotime(), p.tick) {
			hwio.SetBit8(&ret, portBOut2)
		}
	}
	p.mu.Unlock()

	x.SetReturn(uint32(ret))
	return hwdefs.NoIRQ
}

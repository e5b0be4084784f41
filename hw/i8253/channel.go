package i8253

import (
	"fmt"

	"vmtimer/hw/evsched"
	"vmtimer/hw/hwio"
)

// Mode is the operating mode of a counter, as programmed by the 3 mode bits
// of the control word.
type Mode uint8

const (
	ModeIntTC    Mode = 0 // interrupt on terminal count (one-shot)
	ModeOneShot  Mode = 1 // hardware retriggerable one-shot
	ModeRateGen  Mode = 2
	ModeSqWave   Mode = 3
	ModeSWStrobe Mode = 4
	ModeHWStrobe Mode = 5
)

var modeNames = [8]string{
	"inttc", "oneshot", "rategen", "sqwave", "swstrobe", "hwstrobe", "rategen*", "sqwave*",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Only inttc and sqwave get a distinct behavior. All other modes are stored,
// rearm like a periodic counter and report no status on port 0x61.

// Phase selects which byte of a 16-bit counter value the next data port
// access transfers.
type Phase uint8

const (
	PhaseLow Phase = iota
	PhaseHigh
)

func (p Phase) flip() Phase { return p ^ 1 }

func (p Phase) String() string {
	if p == PhaseHigh {
		return "high"
	}
	return "low"
}

// control word
const (
	ctrlRW16   = 0x30 // access mode: lsb then msb
	ctrlRWMask = 0x30
	ctrlLatch  = 0x00

	selReadback = 3
)

// readback command
const (
	rbCount  = 0x20 // clear: latch count
	rbStatus = 0x10 // clear: latch status
)

var rbChannel = [3]uint8{0x02, 0x04, 0x08}

type channel struct {
	mode   Mode
	start  uint16 // reload value, never 0
	ilatch uint16
	lastW  Phase
	olatch uint16
	lastR  Phase
	rbs    bool
	inUse  bool
	state  bool  // inttc counter has fired
	ts     int64 // monotonic ns at last reset
	vmID   uint32

	timer *evsched.Timer
}

func (c *channel) init(vmID uint32, now int64) {
	*c = channel{
		mode:  ModeIntTC,
		start: 0xFFFF,
		ts:    now,
		vmID:  vmID,
		timer: c.timer,
	}
}

// write feeds one byte of a reload value. It reports whether the byte
// completed the value, which is then committed to start.
func (c *channel) write(b uint8) bool {
	if c.lastW == PhaseLow {
		hwio.SetLo8(&c.ilatch, b)
		c.lastW = c.lastW.flip()
		return false
	}

	hwio.SetHi8(&c.ilatch, b)
	c.lastW = c.lastW.flip()
	c.start = c.ilatch
	if c.start == 0 {
		c.start = 0xFFFF
	}
	return true
}

// read returns the next byte of the output latch, or the status byte if a
// readback status is pending.
func (c *channel) read() uint8 {
	if c.rbs {
		c.rbs = false
		return c.status()
	}

	b := hwio.Hi8(c.olatch)
	if c.lastR == PhaseLow {
		b = hwio.Lo8(c.olatch)
	}
	c.lastR = c.lastR.flip()
	return b
}

// status returns the readback status byte. The null count and output bits are
// not emulated.
func (c *channel) status() uint8 {
	return uint8(c.mode)<<1 | ctrlRW16
}

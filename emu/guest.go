package emu

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"vmtimer/emu/log"
	"vmtimer/hw/hwdefs"
	"vmtimer/hw/hwio"
)

// pause between polls while the machine is paused
const pausedPoll = 10 * time.Millisecond

func programCounter(cpu *VCPU, counter uint8, mode uint8, reload uint16) {
	cpu.Out8(hwdefs.PITControl, counter<<6|0x30|mode<<1)
	cpu.Out8(hwdefs.PITCounter0+uint16(counter), uint8(reload))
	cpu.Out8(hwdefs.PITCounter0+uint16(counter), uint8(reload>>8))
}

func wait(ctx context.Context, cpu *VCPU, d time.Duration) bool {
	if cpu.Paused() {
		d = max(d, pausedPoll)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RateGuest programs a counter as a square wave generator, like an OS
// setting up its periodic tick, then keeps sampling its count.
type RateGuest struct {
	Counter uint8 // 0 or 1
	Reload  uint16
	Poll    time.Duration

	samples atomic.Uint64
	last    atomic.Uint32
}

func (g *RateGuest) Run(ctx context.Context, cpu *VCPU) error {
	if g.Counter > 1 {
		return fmt.Errorf("rate guest on counter %d: counter 2 is reserved", g.Counter)
	}
	reload := uint32(g.Reload)
	if reload == 0 {
		reload = 0xFFFF
	}

	programCounter(cpu, g.Counter, 3, g.Reload)
	log.ModEmu.DebugZ("rate guest started").Int("vcpu", cpu.ID).Int("counter", int(g.Counter)).End()

	for wait(ctx, cpu, g.Poll) {
		if cpu.Paused() {
			continue
		}
		cpu.Out8(hwdefs.PITControl, g.Counter<<6) // latch
		lo := cpu.In8(hwdefs.PITCounter0 + uint16(g.Counter))
		hi := cpu.In8(hwdefs.PITCounter0 + uint16(g.Counter))

		count := uint32(hi)<<8 | uint32(lo)
		if count == 0 || count > reload {
			return fmt.Errorf("counter %d: latched count %#x out of [1, %#x]", g.Counter, count, reload)
		}
		g.last.Store(count)
		g.samples.Add(1)
	}
	return nil
}

// Samples returns the number of counts read so far.
func (g *RateGuest) Samples() uint64 { return g.samples.Load() }

// Last returns the last count read.
func (g *RateGuest) Last() uint16 { return uint16(g.last.Load()) }

// OneShotGuest repeatedly programs counter 2 in interrupt on terminal count
// mode and busy waits on port B for its output to go high, the way a BIOS
// calibrates delay loops.
type OneShotGuest struct {
	Reload uint16
	Poll   time.Duration
	Repeat int // 0 means forever

	fired   atomic.Uint64
	elapsed atomic.Int64 // last wait, in ns
}

func (g *OneShotGuest) Run(ctx context.Context, cpu *VCPU) error {
	for n := 0; g.Repeat == 0 || n < g.Repeat; n++ {
		start := time.Now()
		programCounter(cpu, 2, 0, g.Reload)
		for !hwio.GetBit8(cpu.In8(hwdefs.PortB), 5) {
			if !wait(ctx, cpu, g.Poll) {
				return nil
			}
		}
		g.elapsed.Store(int64(time.Since(start)))
		g.fired.Add(1)

		log.ModEmu.DebugZ("one shot fired").
			Int("vcpu", cpu.ID).
			Duration("elapsed", time.Since(start)).
			End()
	}
	return nil
}

// Fired returns the number of times counter 2 was seen reaching terminal
// count.
func (g *OneShotGuest) Fired() uint64 { return g.fired.Load() }

// Elapsed returns how long the last one-shot took to fire, as seen by the
// guest.
func (g *OneShotGuest) Elapsed() time.Duration { return time.Duration(g.elapsed.Load()) }

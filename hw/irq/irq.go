// Package irq delivers device interrupts to the virtual interrupt controller.
package irq

import (
	"sync"

	"vmtimer/emu/log"
)

// Line raises and lowers an interrupt pin of a VM's legacy PIC.
type Line interface {
	Assert(vmID uint32, irq, pin uint8)
	Deassert(vmID uint32, irq, pin uint8)
}

// LineFunc adapts a function to the Line interface.
type LineFunc func(vmID uint32, irq, pin uint8, level bool)

func (f LineFunc) Assert(vmID uint32, irq, pin uint8)   { f(vmID, irq, pin, true) }
func (f LineFunc) Deassert(vmID uint32, irq, pin uint8) { f(vmID, irq, pin, false) }

// Nop drops all interrupts.
type Nop struct{}

func (Nop) Assert(uint32, uint8, uint8)   {}
func (Nop) Deassert(uint32, uint8, uint8) {}

// Pin identifies an interrupt pin of a VM.
type Pin struct {
	VM  uint32
	IRQ uint8
	Pin uint8
}

// Counter is a Line recording the level of each pin and counting the number
// of rising edges (pulses) it has seen. It is safe for concurrent use.
type Counter struct {
	mu     sync.Mutex
	level  map[Pin]bool
	pulses map[Pin]int

	// Notify, if set, receives a non-blocking signal on every rising edge.
	Notify chan<- Pin
}

func NewCounter() *Counter {
	return &Counter{
		level:  make(map[Pin]bool),
		pulses: make(map[Pin]int),
	}
}

func (c *Counter) Assert(vmID uint32, irq, pin uint8) {
	p := Pin{vmID, irq, pin}
	c.mu.Lock()
	rising := !c.level[p]
	c.level[p] = true
	if rising {
		c.pulses[p]++
	}
	c.mu.Unlock()

	if rising && c.Notify != nil {
		select {
		case c.Notify <- p:
		default:
		}
	}
	log.ModIRQ.DebugZ("assert").Hex32("vm", vmID).Int("irq", int(irq)).Int("pin", int(pin)).End()
}

func (c *Counter) Deassert(vmID uint32, irq, pin uint8) {
	c.mu.Lock()
	c.level[Pin{vmID, irq, pin}] = false
	c.mu.Unlock()
}

// Pulses returns the number of rising edges seen on a pin.
func (c *Counter) Pulses(vmID uint32, irq, pin uint8) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pulses[Pin{vmID, irq, pin}]
}

// Level returns the current level of a pin.
func (c *Counter) Level(vmID uint32, irq, pin uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level[Pin{vmID, irq, pin}]
}

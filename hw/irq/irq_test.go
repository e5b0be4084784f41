package irq

import "testing"

func TestCounterPulses(t *testing.T) {
	notify := make(chan Pin, 4)
	c := NewCounter()
	c.Notify = notify

	c.Assert(7, 0, 0)
	if !c.Level(7, 0, 0) {
		t.Fatal("pin not high after Assert")
	}
	// Level-triggered re-assert is not a new edge.
	c.Assert(7, 0, 0)
	c.Deassert(7, 0, 0)
	c.Assert(7, 0, 0)
	c.Deassert(7, 0, 0)

	if got := c.Pulses(7, 0, 0); got != 2 {
		t.Errorf("Pulses() = %d, want 2", got)
	}
	if c.Level(7, 0, 0) {
		t.Error("pin still high after Deassert")
	}
	if got := c.Pulses(8, 0, 0); got != 0 {
		t.Errorf("Pulses() on another vm = %d, want 0", got)
	}
	if got := len(notify); got != 2 {
		t.Errorf("got %d notifications, want 2", got)
	}
	if p := <-notify; p != (Pin{VM: 7}) {
		t.Errorf("notified pin = %+v", p)
	}
}

func TestLineFunc(t *testing.T) {
	var levels []bool
	var l Line = LineFunc(func(vmID uint32, irq, pin uint8, level bool) {
		levels = append(levels, level)
	})
	l.Assert(1, 0, 0)
	l.Deassert(1, 0, 0)
	if len(levels) != 2 || !levels[0] || levels[1] {
		t.Errorf("levels = %v, want [true false]", levels)
	}
}

//go:build !linux

package irq

import "vmtimer/emu/log"

// KVM is only available on linux. Elsewhere interrupts are dropped.
type KVM struct{}

func NewKVM() *KVM { return &KVM{} }

func (*KVM) Attach(vmID uint32, vmfd int) {
	log.ModIRQ.WarnZ("KVM is not supported on this platform").Hex32("vm", vmID).End()
}

func (*KVM) Detach(uint32) {}

func (*KVM) Assert(uint32, uint8, uint8)   {}
func (*KVM) Deassert(uint32, uint8, uint8) {}

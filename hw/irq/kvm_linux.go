package irq

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"vmtimer/emu/log"
)

// _IOW(KVMIO, 0x61, struct kvm_irq_level)
const kvmIRQLine = 0x4008AE61

type kvmIRQLevel struct {
	IRQ   uint32
	Level uint32
}

// KVM drives the in-kernel irqchip of KVM virtual machines through the
// KVM_IRQ_LINE ioctl. Pin p of PIC line l is routed to GSI l*8+p (line 0 is
// the master PIC, line 1 the slave).
type KVM struct {
	mu  sync.RWMutex
	fds map[uint32]int
}

func NewKVM() *KVM {
	return &KVM{fds: make(map[uint32]int)}
}

// Attach associates vmID with the file descriptor of its KVM VM.
func (k *KVM) Attach(vmID uint32, vmfd int) {
	k.mu.Lock()
	k.fds[vmID] = vmfd
	k.mu.Unlock()
}

// Detach forgets vmID. The file descriptor is not closed.
func (k *KVM) Detach(vmID uint32) {
	k.mu.Lock()
	delete(k.fds, vmID)
	k.mu.Unlock()
}

func (k *KVM) Assert(vmID uint32, irq, pin uint8)   { k.set(vmID, irq, pin, 1) }
func (k *KVM) Deassert(vmID uint32, irq, pin uint8) { k.set(vmID, irq, pin, 0) }

func (k *KVM) set(vmID uint32, irq, pin uint8, level uint32) {
	k.mu.RLock()
	fd, ok := k.fds[vmID]
	k.mu.RUnlock()
	if !ok {
		log.ModIRQ.WarnZ("interrupt for unknown vm").Hex32("vm", vmID).End()
		return
	}

	if err := irqLine(fd, uint32(irq)*8+uint32(pin), level); err != nil {
		log.ModIRQ.ErrorZ("KVM_IRQ_LINE failed").
			Hex32("vm", vmID).
			Int("irq", int(irq)).
			Int("pin", int(pin)).
			Error("err", err).
			End()
	}
}

func irqLine(vmfd int, gsi, level uint32) error {
	lvl := kvmIRQLevel{IRQ: gsi, Level: level}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(vmfd), kvmIRQLine, uintptr(unsafe.Pointer(&lvl)))
	if errno != 0 {
		return fmt.Errorf("ioctl(KVM_IRQ_LINE, gsi=%d, level=%d): %w", gsi, level, errno)
	}
	return nil
}

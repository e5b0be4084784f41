package hwio

import "fmt"

// Dir is the direction of a port I/O instruction, seen from the guest.
type Dir uint8

const (
	DirOut Dir = iota // OUT: guest writes to the device
	DirIn             // IN: guest reads from the device
)

func (d Dir) String() string {
	if d == DirIn {
		return "in"
	}
	return "out"
}

// Exit describes a single port I/O instruction that caused a vCPU exit.
type Exit struct {
	Port uint16
	Dir  Dir
	Size uint8 // access width in bytes: 1, 2 or 4

	// Data holds the value written by the guest for DirOut, and receives the
	// value returned to the guest for DirIn.
	Data uint32
}

// Handler services a port exit. It returns the interrupt vector to inject
// into the guest, or hwdefs.NoIRQ.
type Handler func(x *Exit) uint8

func (x *Exit) mask() uint32 {
	switch x.Size {
	case 2:
		return 0xFFFF
	case 4:
		return 0xFFFFFFFF
	}
	return 0xFF
}

// Input returns the guest-written value, truncated to the access width.
func (x *Exit) Input() uint32 {
	return x.Data & x.mask()
}

// SetReturn sets the value returned to the guest, truncated to the access
// width.
func (x *Exit) SetReturn(val uint32) {
	x.Data = val & x.mask()
}

func (x Exit) String() string {
	return fmt.Sprintf("%s{port=%04x,size=%d,data=%x}", x.Dir, x.Port, x.Size, x.Data)
}

package hwio

import (
	"vmtimer/emu/log"
	"vmtimer/hw/hwdefs"
)

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag
)

// Device is a range of ports serviced by a pair of callbacks.
type Device struct {
	Name  string // name of the device (for debugging)
	Size  int    // number of consecutive ports
	Flags RWFlags

	InCb  Handler
	OutCb Handler
}

// Handle enforces d.Flags and forwards x to the callback matching its
// direction. Rejected or unhandled reads return all ones, like an open bus.
func (d *Device) Handle(x *Exit) uint8 {
	if x.Dir == DirIn {
		switch {
		case d.Flags&WriteOnlyFlag != 0:
			log.ModHwIo.ErrorZ("invalid read from writeonly device").
				String("name", d.Name).
				Hex16("port", x.Port).
				End()
			fallthrough
		case d.InCb == nil:
			x.SetReturn(0xFFFFFFFF)
			return hwdefs.NoIRQ
		}
		return d.InCb(x)
	}

	switch {
	case d.Flags&ReadOnlyFlag != 0:
		log.ModHwIo.ErrorZ("invalid write to readonly device").
			String("name", d.Name).
			Hex16("port", x.Port).
			End()
		fallthrough
	case d.OutCb == nil:
		return hwdefs.NoIRQ
	}
	return d.OutCb(x)
}

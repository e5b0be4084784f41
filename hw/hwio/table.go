package hwio

import (
	"fmt"
	"sort"

	"vmtimer/emu/log"
	"vmtimer/hw/hwdefs"
)

// log unmapped accesses (useful for debugging but verbose, since guests probe
// many ports nobody emulates)
const logUnmapped = true

type portRange struct {
	begin, end uint16
	name       string
	h          Handler
}

// Table routes port exits to the handlers mapped on the port space.
//
// Mapping must be completed before the table is shared with vCPU goroutines;
// Dispatch does not lock.
type Table struct {
	Name string

	// Unmapped, if set, services exits on ports no handler is mapped to.
	Unmapped Handler

	mapped Bitset
	ranges []portRange // sorted by begin, non overlapping
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	return t
}

// Map maps ports [begin, end] to h.
func (t *Table) Map(begin, end uint16, name string, h Handler) error {
	if end < begin {
		return fmt.Errorf("hwio: %s: invalid port range %04x-%04x", name, begin, end)
	}
	if h == nil {
		return fmt.Errorf("hwio: %s: nil handler", name)
	}
	for p := uint(begin); p <= uint(end); p++ {
		if t.mapped.Test(p) {
			prev, _ := t.lookup(uint16(p))
			return fmt.Errorf("hwio: %s: port %04x already mapped to %s", name, p, prev.name)
		}
	}

	log.ModHwIo.DebugZ("mapping ports").
		Hex16("begin", begin).
		Hex16("end", end).
		String("dev", name).
		String("bus", t.Name).
		End()

	t.mapped.SetRange(uint(begin), uint(end)+1)
	t.ranges = append(t.ranges, portRange{begin: begin, end: end, name: name, h: h})
	sort.Slice(t.ranges, func(i, j int) bool { return t.ranges[i].begin < t.ranges[j].begin })
	return nil
}

// MapDevice maps d on ports [addr, addr+d.Size-1].
func (t *Table) MapDevice(addr uint16, d *Device) error {
	if d.Size <= 0 || int(addr)+d.Size-1 > 0xFFFF {
		return fmt.Errorf("hwio: %s: invalid device size %d at %04x", d.Name, d.Size, addr)
	}
	return t.Map(addr, addr+uint16(d.Size-1), d.Name, d.Handle)
}

func (t *Table) Unmap(begin, end uint16) {
	kept := t.ranges[:0]
	for _, r := range t.ranges {
		if r.end < begin || r.begin > end {
			kept = append(kept, r)
			continue
		}
		t.mapped.ClearRange(uint(r.begin), uint(r.end)+1)
	}
	t.ranges = kept
}

func (t *Table) lookup(port uint16) (portRange, bool) {
	if !t.mapped.Test(uint(port)) {
		return portRange{}, false
	}
	i := sort.Search(len(t.ranges), func(i int) bool { return t.ranges[i].end >= port })
	if i < len(t.ranges) && t.ranges[i].begin <= port {
		return t.ranges[i], true
	}
	return portRange{}, false
}

// Dispatch forwards x to the handler mapped at x.Port. Reads from unmapped
// ports return all ones.
func (t *Table) Dispatch(x *Exit) uint8 {
	r, ok := t.lookup(x.Port)
	if ok {
		return r.h(x)
	}
	if t.Unmapped != nil {
		return t.Unmapped(x)
	}
	if logUnmapped {
		log.ModHwIo.DebugZ("unmapped port access").
			String("bus", t.Name).
			Stringer("dir", x.Dir).
			Hex16("port", x.Port).
			End()
	}
	if x.Dir == DirIn {
		x.SetReturn(0xFFFFFFFF)
	}
	return hwdefs.NoIRQ
}

// Out8 is a convenience function issuing a 1-byte OUT on port.
func (t *Table) Out8(port uint16, val uint8) uint8 {
	x := Exit{Port: port, Dir: DirOut, Size: 1, Data: uint32(val)}
	return t.Dispatch(&x)
}

// In8 is a convenience function issuing a 1-byte IN on port.
func (t *Table) In8(port uint16) uint8 {
	x := Exit{Port: port, Dir: DirIn, Size: 1}
	t.Dispatch(&x)
	return uint8(x.Data)
}

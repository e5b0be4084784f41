package hwio_test

import (
	"testing"

	"vmtimer/hw/hwdefs"
	"vmtimer/hw/hwio"
)

type testBus struct {
	t   testing.TB
	Bus *hwio.Table

	// $0070-$0071
	RW hwio.Device
	// $0080
	RO hwio.Device
	// $0090
	WO hwio.Device

	index  uint8
	outval uint8
}

func newTestBus(tb testing.TB) *testBus {
	tbus := &testBus{t: tb, Bus: hwio.NewTable("bus")}
	tbus.RW = hwio.Device{
		Name:  "rw",
		Size:  2,
		InCb:  tbus.readRW,
		OutCb: tbus.writeRW,
	}
	tbus.RO = hwio.Device{Name: "ro", Size: 1, Flags: hwio.ReadOnlyFlag, InCb: tbus.readRW, OutCb: tbus.writeRW}
	tbus.WO = hwio.Device{Name: "wo", Size: 1, Flags: hwio.WriteOnlyFlag, InCb: tbus.readRW, OutCb: tbus.writeRW}

	for addr, dev := range map[uint16]*hwio.Device{0x70: &tbus.RW, 0x80: &tbus.RO, 0x90: &tbus.WO} {
		if err := tbus.Bus.MapDevice(addr, dev); err != nil {
			tb.Fatal(err)
		}
	}
	return tbus
}

func (tbus *testBus) readRW(x *hwio.Exit) uint8 {
	x.SetReturn(uint32(tbus.index) + uint32(x.Port&0xF))
	return hwdefs.NoIRQ
}

func (tbus *testBus) writeRW(x *hwio.Exit) uint8 {
	if x.Port == 0x70 {
		tbus.index = uint8(x.Input())
	} else {
		tbus.outval = uint8(x.Input())
	}
	return 0x20
}

func (tbus *testBus) wantIn8(port uint16, want uint8) {
	tbus.t.Helper()

	if got := tbus.Bus.In8(port); got != want {
		tbus.t.Errorf("In8(%04X) = %02X, want %02X", port, got, want)
	}
}

func TestTableDevice(t *testing.T) {
	tbus := newTestBus(t)

	if irq := tbus.Bus.Out8(0x70, 0x10); irq != 0x20 {
		t.Errorf("Out8(0070) irq = %02X, want 20", irq)
	}
	tbus.wantIn8(0x70, 0x10)
	tbus.wantIn8(0x71, 0x11)

	tbus.Bus.Out8(0x71, 0x33)
	if tbus.outval != 0x33 {
		t.Errorf("outval = %02X, want 33", tbus.outval)
	}
}

func TestTableFlags(t *testing.T) {
	tbus := newTestBus(t)
	tbus.Bus.Out8(0x70, 0x40)

	// readonly
	tbus.wantIn8(0x80, 0x40)
	if irq := tbus.Bus.Out8(0x80, 0x12); irq != hwdefs.NoIRQ {
		t.Errorf("Out8 to readonly device irq = %02X, want NoIRQ", irq)
	}
	if tbus.outval != 0 {
		t.Errorf("readonly device was written: outval = %02X", tbus.outval)
	}

	// writeonly
	tbus.wantIn8(0x90, 0xFF)
	tbus.Bus.Out8(0x90, 0x77)
	if tbus.outval != 0x77 {
		t.Errorf("outval = %02X, want 77", tbus.outval)
	}
}

func TestTableUnmapped(t *testing.T) {
	tbus := newTestBus(t)
	tbus.wantIn8(0x72, 0xFF)

	x := hwio.Exit{Port: 0x1234, Dir: hwio.DirIn, Size: 2}
	tbus.Bus.Dispatch(&x)
	if x.Data != 0xFFFF {
		t.Errorf("16-bit read from unmapped port = %X, want FFFF", x.Data)
	}

	tbus.Bus.Unmapped = func(x *hwio.Exit) uint8 {
		x.SetReturn(0xD3)
		return hwdefs.NoIRQ
	}
	tbus.wantIn8(0x72, 0xD3)
}

func TestTableOverlap(t *testing.T) {
	tbus := newTestBus(t)

	nop := func(*hwio.Exit) uint8 { return hwdefs.NoIRQ }
	if err := tbus.Bus.Map(0x71, 0x75, "overlap", nop); err == nil {
		t.Fatal("Map over an already mapped port succeeded")
	}
	if err := tbus.Bus.Map(0x72, 0x75, "after", nop); err != nil {
		t.Fatalf("Map(0072, 0075) = %v", err)
	}
	if err := tbus.Bus.Map(0x20, 0x10, "reversed", nop); err == nil {
		t.Fatal("Map of a reversed range succeeded")
	}

	tbus.Bus.Unmap(0x70, 0x71)
	tbus.wantIn8(0x70, 0xFF)
	if err := tbus.Bus.Map(0x70, 0x71, "again", nop); err != nil {
		t.Fatalf("Map after Unmap = %v", err)
	}
}

func TestExitWidth(t *testing.T) {
	x := hwio.Exit{Size: 1, Data: 0x1234}
	if got := x.Input(); got != 0x34 {
		t.Errorf("Input() = %X, want 34", got)
	}
	x.Size = 2
	x.SetReturn(0xABCDE)
	if x.Data != 0xBCDE {
		t.Errorf("SetReturn(ABCDE) with size 2 = %X, want BCDE", x.Data)
	}
}

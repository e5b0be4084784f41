package hwdefs

// Legacy PC I/O ports of the i8253 PIT.
const (
	PITCounter0 uint16 = 0x40
	PITCounter1 uint16 = 0x41
	PITCounter2 uint16 = 0x42
	PITControl  uint16 = 0x43

	// System control port B. Bit 5 reflects the output of PIT counter 2.
	PortB uint16 = 0x61
)

// PITFreq is the input clock of the PIT, in Hz.
const PITFreq = 1193182

// NsPerTick is the duration of one PIT tick, truncated to whole nanoseconds.
const NsPerTick = 1_000_000_000 / PITFreq

// Legacy PIC routing of the PIT interrupt.
const (
	PITIRQ uint8 = 0
	PITPin uint8 = 0
)

// NoIRQ is returned by port exit handlers when no interrupt must be injected
// synchronously.
const NoIRQ uint8 = 0xFF

// Package snapshot defines the saved-state images of the emulated devices.
//
// Images are fixed-size little-endian records so they can be exchanged between
// hosts running the same device model.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// NumPITChannels is the number of counters of an i8253.
const NumPITChannels = 3

// PITChannel is the saved state of one i8253 counter.
type PITChannel struct {
	Mode   uint8
	Start  uint16 // reload value, never 0
	ILatch uint16
	LastW  uint8 // write phase
	OLatch uint16
	LastR  uint8 // read phase
	RBS    bool  // readback status pending
	InUse  bool
	State  bool  // one-shot has fired
	TS     int64 // monotonic ns of the last reset
	VMID   uint32

	// Timer is the handle of the timer armed when the image was taken. It is
	// only informational, a restored channel always gets a fresh timer.
	Timer uint64
}

type PIT struct {
	Channels [NumPITChannels]PITChannel
}

// PITSize is the size in bytes of an encoded PIT image.
var PITSize = binary.Size(PIT{})

func (p *PIT) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(PITSize)
	if err := binary.Write(&buf, binary.LittleEndian, p); err != nil {
		return nil, fmt.Errorf("snapshot: encode pit: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *PIT) UnmarshalBinary(data []byte) error {
	if len(data) != PITSize {
		return fmt.Errorf("snapshot: pit image is %d bytes, want %d", len(data), PITSize)
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, p); err != nil {
		return fmt.Errorf("snapshot: decode pit: %w", err)
	}
	return nil
}

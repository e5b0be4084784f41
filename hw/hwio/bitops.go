package hwio

// 8-bit operations
func GetBit8(v uint8, n uint) bool {
	return v&(1<<n) != 0
}

func SetBit8(v *uint8, n uint) {
	*v |= (1 << n)
}

func ClearBit8(v *uint8, n uint) {
	*v &= ^(1 << n)
}

// Bits8 extracts the width-bits field starting at bit lo.
func Bits8(v uint8, lo, width uint) uint8 {
	return (v >> lo) & (1<<width - 1)
}

// 16-bit operations

// Lo8 returns the low byte of v.
func Lo8(v uint16) uint8 { return uint8(v) }

// Hi8 returns the high byte of v.
func Hi8(v uint16) uint8 { return uint8(v >> 8) }

// SetLo8 replaces the low byte of v.
func SetLo8(v *uint16, b uint8) {
	*v = *v&0xFF00 | uint16(b)
}

// SetHi8 replaces the high byte of v.
func SetHi8(v *uint16, b uint8) {
	*v = *v&0x00FF | uint16(b)<<8
}

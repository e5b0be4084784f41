package hwio

import "fmt"

const (
	NumBits  = 0x10000            // x86 I/O port space is 64K
	wordSize = 64                 // using 64-bit words
	numWords = NumBits / wordSize // 1024 words exactly
)

// Bitset is a 64Kbit set, one bit per I/O port. Zero value is an empty set.
type Bitset struct {
	words [numWords]uint64
}

func (b *Bitset) Set(i uint) {
	b.words[i/wordSize] |= 1 << (i % wordSize)
}

func (b *Bitset) Clear(i uint) {
	b.words[i/wordSize] &^= 1 << (i % wordSize)
}

func (b *Bitset) Test(i uint) bool {
	return (b.words[i/wordSize] & (1 << (i % wordSize))) != 0
}

// rangeMasks calls fn with each word index and bit mask covering [start, end).
func rangeMasks(start, end uint, fn func(w uint, mask uint64)) {
	if start >= end || end > NumBits {
		panic(fmt.Sprintf("invalid range [%d, %d)", start, end))
	}
	first, last := start/wordSize, (end-1)/wordSize
	for w := first; w <= last; w++ {
		mask := ^uint64(0)
		if w == first {
			mask &= ^uint64(0) << (start % wordSize)
		}
		if w == last {
			mask &= ^uint64(0) >> (wordSize - 1 - (end-1)%wordSize)
		}
		fn(w, mask)
	}
}

// SetRange sets all bits in the half-open interval [start, end).
// It panics if start >= end or end > NumBits.
func (b *Bitset) SetRange(start, end uint) {
	rangeMasks(start, end, func(w uint, mask uint64) { b.words[w] |= mask })
}

// ClearRange clears all bits in the half-open interval [start, end).
// It panics if start >= end or end > NumBits.
func (b *Bitset) ClearRange(start, end uint) {
	rangeMasks(start, end, func(w uint, mask uint64) { b.words[w] &^= mask })
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		for ; w != 0; w &= w - 1 {
			n++
		}
	}
	return n
}

func (b *Bitset) Reset() {
	clear(b.words[:])
}

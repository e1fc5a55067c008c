// Package sector extracts ID and data fields from a decoded bitstream,
// validating them with the checksum scheme of the track's encoding.
package sector

// Bitstream is an owned bit buffer addressed by bit index. All field
// decoders read through it; out-of-range reads report failure instead of
// panicking, so truncated tracks degrade gracefully.
type Bitstream struct {
	bits []bool
}

// NewBitstream wraps a decoded bit sequence. The slice is owned by the
// caller but never modified here.
func NewBitstream(bits []bool) *Bitstream {
	return &Bitstream{bits: bits}
}

// Len returns the number of bits in the stream.
func (b *Bitstream) Len() int {
	return len(b.bits)
}

// At returns the bit at the given index, or false past the end.
func (b *Bitstream) At(i int) bool {
	if i < 0 || i >= len(b.bits) {
		return false
	}
	return b.bits[i]
}

// byteAt reads 8 consecutive bits MSB-first.
func (b *Bitstream) byteAt(pos int) (byte, bool) {
	if pos < 0 || pos+8 > len(b.bits) {
		return 0, false
	}
	var v byte
	for i := 0; i < 8; i++ {
		v <<= 1
		if b.bits[pos+i] {
			v |= 1
		}
	}
	return v, true
}

// wordAt reads 16 consecutive bits MSB-first.
func (b *Bitstream) wordAt(pos int) (uint16, bool) {
	if pos < 0 || pos+16 > len(b.bits) {
		return 0, false
	}
	var v uint16
	for i := 0; i < 16; i++ {
		v <<= 1
		if b.bits[pos+i] {
			v |= 1
		}
	}
	return v, true
}

// longAt reads 32 consecutive bits MSB-first.
func (b *Bitstream) longAt(pos int) (uint32, bool) {
	if pos < 0 || pos+32 > len(b.bits) {
		return 0, false
	}
	var v uint32
	for i := 0; i < 32; i++ {
		v <<= 1
		if b.bits[pos+i] {
			v |= 1
		}
	}
	return v, true
}

// clockedByteAt decodes one byte from 16 clock/data bit pairs: the data
// bits sit at the odd offsets. This is how both MFM and FM lay bytes out
// on disk, they differ only in the clock rule.
func (b *Bitstream) clockedByteAt(pos int) (byte, bool) {
	if pos < 0 || pos+16 > len(b.bits) {
		return 0, false
	}
	var v byte
	for i := 0; i < 8; i++ {
		v <<= 1
		if b.bits[pos+2*i+1] {
			v |= 1
		}
	}
	return v, true
}

package sector

// Apple II 6-and-2 GCR layout: the address field opens with the D5 AA 96
// prologue and carries volume/track/sector/checksum as 4-and-4 pairs; the
// data field opens with D5 AA AD and carries 342 six-bit nibbles plus a
// chained-XOR checksum nibble for 256 bytes of payload.

const (
	// appleDataLookahead bounds the address-to-data gap in bits.
	appleDataLookahead = 4000
	appleDataNibbles   = 342
)

// apple62Encode maps a 6-bit value to its disk nibble.
var apple62Encode = [64]byte{
	0x96, 0x97, 0x9A, 0x9B, 0x9D, 0x9E, 0x9F, 0xA6,
	0xA7, 0xAB, 0xAC, 0xAD, 0xAE, 0xAF, 0xB2, 0xB3,
	0xB4, 0xB5, 0xB6, 0xB7, 0xB9, 0xBA, 0xBB, 0xBC,
	0xBD, 0xBE, 0xBF, 0xCB, 0xCD, 0xCE, 0xCF, 0xD3,
	0xD6, 0xD7, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE,
	0xDF, 0xE5, 0xE6, 0xE7, 0xE9, 0xEA, 0xEB, 0xEC,
	0xED, 0xEE, 0xEF, 0xF2, 0xF3, 0xF4, 0xF5, 0xF6,
	0xF7, 0xF9, 0xFA, 0xFB, 0xFC, 0xFD, 0xFE, 0xFF,
}

// apple62Decode is the inverse table, 0xFF = not a data nibble.
var apple62Decode [256]byte

func init() {
	for i := range apple62Decode {
		apple62Decode[i] = 0xFF
	}
	for v, nib := range apple62Encode {
		apple62Decode[nib] = byte(v)
	}
	registerDecoder(VariantApple, func() decoder { return &appleDecoder{} })
}

type appleDecoder struct{}

// findPrologue scans for a D5 AA xx prologue with the given third byte.
func findPrologue(bs *Bitstream, start, end int, third byte) (int, bool) {
	if end > bs.Len() {
		end = bs.Len()
	}
	for pos := start; pos+24 <= end; pos++ {
		if matchBytes(bs, pos, 0xD5, 0xAA, third) {
			return pos, true
		}
	}
	return 0, false
}

// read44 decodes one 4-and-4 byte from two disk nibbles.
func read44(bs *Bitstream, pos int) (byte, bool) {
	n1, ok1 := bs.byteAt(pos)
	n2, ok2 := bs.byteAt(pos + 8)
	if !ok1 || !ok2 {
		return 0, false
	}
	return (n1<<1 | 1) & n2, true
}

// swap2 exchanges the two bits of a 2-bit group; the low bits of each
// byte are stored bit-reversed in the auxiliary nibble block.
func swap2(v byte) byte {
	return (v&1)<<1 | v>>1&1
}

func (d *appleDecoder) extract(bs *Bitstream, opts *Options) Result {
	var result Result
	pos := 0

	for {
		if len(result.Records) >= opts.MaxSectors {
			if _, ok := findPrologue(bs, pos, bs.Len(), 0x96); ok {
				result.Truncated = true
			}
			return result
		}

		addrPos, ok := findPrologue(bs, pos, bs.Len(), 0x96)
		if !ok {
			return result
		}
		p := addrPos + 24

		volume, ok1 := read44(bs, p)
		track, ok2 := read44(bs, p+16)
		sect, ok3 := read44(bs, p+32)
		cksum, ok4 := read44(bs, p+48)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return result
		}
		p += 64

		record := Record{
			Track:    int(track),
			Sector:   int(sect),
			SizeCode: 1, // 256-byte sectors
			HeaderOK: volume^track^sect == cksum,
			SyncBit:  addrPos,
		}

		dataPos, ok := findPrologue(bs, p, p+appleDataLookahead, 0xAD)
		if !ok {
			pos = p
			continue
		}
		dp := dataPos + 24

		// 342 chained nibbles then the checksum nibble.
		vals := make([]byte, appleDataNibbles)
		last := byte(0)
		nibblesOK := true
		for i := range vals {
			nib, ok := bs.byteAt(dp)
			if !ok {
				nibblesOK = false
				break
			}
			v := apple62Decode[nib]
			if v == 0xFF {
				nibblesOK = false
				break
			}
			last ^= v
			vals[i] = last
			dp += 8
		}
		if !nibblesOK {
			pos = dataPos + 24
			continue
		}
		chkNib, ok := bs.byteAt(dp)
		dp += 8
		record.DataOK = ok && apple62Decode[chkNib] == last

		// Reassemble: the first 86 values are the packed low-bit block in
		// reverse write order, the remaining 256 the high six bits.
		record.Data = make([]byte, 256)
		for i := 0; i < 256; i++ {
			aux := vals[85-i%86]
			low := swap2(aux >> (2 * (i / 86)) & 3)
			record.Data[i] = vals[86+i]<<2 | low
		}

		result.Records = append(result.Records, record)
		pos = dp
	}
}

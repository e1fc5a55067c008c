package sector

// AmigaDOS track layout: each sector opens with a doubled 0x4489 sync,
// then every field is MFM-encoded as an odd-bits block followed by an
// even-bits block. Checksums XOR the raw MFM longwords masked to the
// data-bit positions.

const amigaMask = 0x55555555

func init() {
	registerDecoder(VariantAmiga, func() decoder { return &amigaDecoder{} })
}

type amigaDecoder struct{}

// mergeOddEven recombines a split longword: odd bits first block, even
// bits second.
func mergeOddEven(odd, even uint32) uint32 {
	return (odd&amigaMask)<<1 | even&amigaMask
}

// oddEvenLongAt reads an odd/even pair of raw longwords at pos and
// returns the decoded value plus their raw XOR contribution.
func (bs *Bitstream) oddEvenLongAt(pos int) (value, rawXor uint32, ok bool) {
	odd, ok1 := bs.longAt(pos)
	even, ok2 := bs.longAt(pos + 32)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return mergeOddEven(odd, even), odd ^ even, true
}

func (d *amigaDecoder) extract(bs *Bitstream, opts *Options) Result {
	var result Result
	pos := 0

	for {
		if len(result.Records) >= opts.MaxSectors {
			if _, ok := findAmigaSync(bs, pos); ok {
				result.Truncated = true
			}
			return result
		}

		syncPos, ok := findAmigaSync(bs, pos)
		if !ok {
			return result
		}
		p := syncPos + 32

		// Header: info longword, 16-byte label, header checksum, data
		// checksum. Info and label feed the header checksum.
		info, infoXor, ok := bs.oddEvenLongAt(p)
		if !ok {
			return result
		}
		p += 64

		headerXor := infoXor
		labelOdd := make([]uint32, 4)
		labelEven := make([]uint32, 4)
		labelOK := true
		for i := 0; i < 4; i++ {
			labelOdd[i], labelOK = bs.longAt(p + i*32)
			if !labelOK {
				break
			}
		}
		if labelOK {
			for i := 0; i < 4; i++ {
				labelEven[i], labelOK = bs.longAt(p + 128 + i*32)
				if !labelOK {
					break
				}
			}
		}
		if !labelOK {
			return result
		}
		for i := 0; i < 4; i++ {
			headerXor ^= labelOdd[i] ^ labelEven[i]
		}
		p += 256

		headerChk, _, ok := bs.oddEvenLongAt(p)
		if !ok {
			return result
		}
		p += 64
		dataChk, _, ok := bs.oddEvenLongAt(p)
		if !ok {
			return result
		}
		p += 64

		format := byte(info >> 24)
		trackByte := byte(info >> 16)
		sectorNum := byte(info >> 8)

		record := Record{
			Track:    int(trackByte) >> 1,
			Side:     int(trackByte) & 1,
			Sector:   int(sectorNum),
			SizeCode: 2, // Amiga sectors are always 512 bytes
			HeaderOK: format == 0xFF && headerChk == headerXor&amigaMask,
			SyncBit:  syncPos,
		}

		// Data: 512 bytes as a 128-longword odd block then even block.
		record.Data = make([]byte, 512)
		var dataXor uint32
		dataOK := true
		for i := 0; i < 128; i++ {
			odd, ok1 := bs.longAt(p + i*32)
			even, ok2 := bs.longAt(p + 4096 + i*32)
			if !ok1 || !ok2 {
				dataOK = false
				break
			}
			dataXor ^= odd ^ even
			value := mergeOddEven(odd, even)
			record.Data[i*4] = byte(value >> 24)
			record.Data[i*4+1] = byte(value >> 16)
			record.Data[i*4+2] = byte(value >> 8)
			record.Data[i*4+3] = byte(value)
		}
		if !dataOK {
			return result
		}
		p += 8192
		record.DataOK = dataChk == dataXor&amigaMask

		result.Records = append(result.Records, record)
		pos = p
	}
}

// findAmigaSync scans for the doubled sync word.
func findAmigaSync(bs *Bitstream, start int) (int, bool) {
	for pos := start; pos+32 <= bs.Len(); pos++ {
		w1, _ := bs.wordAt(pos)
		if w1 != mfmSyncWord {
			continue
		}
		w2, _ := bs.wordAt(pos + 16)
		if w2 == mfmSyncWord {
			return pos, true
		}
	}
	return 0, false
}

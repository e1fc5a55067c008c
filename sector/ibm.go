package sector

// IBM-style MFM and FM sector layouts. Both run the same four-state scan:
// find an ID sync, parse the ID field, find the data sync within the
// lookahead, parse the data field. They differ in the sync patterns, the
// CRC domain and the clock rule around address marks.

const (
	// mfmSyncWord is 0xA1 with a missing clock bit; three in a row open
	// an MFM address or data field.
	mfmSyncWord = 0x4489

	idam = 0xFE // ID address mark
	dam  = 0xFB // data address mark
	ddam = 0xF8 // deleted-data address mark

	// FM address marks carry their missing-clock pattern in the raw
	// 16-bit word, so they double as sync marks.
	fmIDAMRaw = 0xF57E // 0xFE with clock 0xC7
	fmDAMRaw  = 0xF56F // 0xFB with clock 0xC7
	fmDDAMRaw = 0xF56A // 0xF8 with clock 0xC7
)

func init() {
	registerDecoder(VariantMFM, func() decoder { return &mfmDecoder{} })
	registerDecoder(VariantFM, func() decoder { return &fmDecoder{} })
}

// findIBMSync scans for three consecutive MFM sync words in [start, end).
func findIBMSync(bs *Bitstream, start, end int) (int, bool) {
	if end > bs.Len() {
		end = bs.Len()
	}
	for pos := start; pos+48 <= end; pos++ {
		w1, _ := bs.wordAt(pos)
		if w1 != mfmSyncWord {
			continue
		}
		w2, _ := bs.wordAt(pos + 16)
		w3, _ := bs.wordAt(pos + 32)
		if w2 == mfmSyncWord && w3 == mfmSyncWord {
			return pos, true
		}
	}
	return 0, false
}

type mfmDecoder struct{}

func (d *mfmDecoder) extract(bs *Bitstream, opts *Options) Result {
	var result Result
	pos := 0

	for {
		if len(result.Records) >= opts.MaxSectors {
			if _, more := findIBMSync(bs, pos, bs.Len()); more {
				result.Truncated = true
			}
			return result
		}

		syncPos, ok := findIBMSync(bs, pos, bs.Len())
		if !ok {
			return result
		}
		fieldPos := syncPos + 48

		mark, ok := bs.clockedByteAt(fieldPos)
		if !ok {
			return result
		}
		if mark != idam {
			// A data mark with no preceding ID, or garbage. Discard this
			// sync occurrence and resume right after it.
			pos = fieldPos
			continue
		}
		fieldPos += 16

		// ID field: track, side, sector, size code, CRC.
		var id [4]byte
		idOK := true
		for i := range id {
			id[i], ok = bs.clockedByteAt(fieldPos)
			if !ok {
				idOK = false
				break
			}
			fieldPos += 16
		}
		if !idOK {
			return result
		}
		crcHi, ok1 := bs.clockedByteAt(fieldPos)
		crcLo, ok2 := bs.clockedByteAt(fieldPos + 16)
		if !ok1 || !ok2 {
			return result
		}
		fieldPos += 32
		storedCRC := uint16(crcHi)<<8 | uint16(crcLo)

		crc := CRC16(opts.CRCInit, []byte{0xA1, 0xA1, 0xA1, idam})
		crc = CRC16(crc, id[:])
		headerOK := crc == storedCRC

		if id[3] > 7 {
			// Size code out of range: the header is garbage even if the
			// CRC happened to collide. Resume after the sync.
			pos = syncPos + 48
			continue
		}

		record := Record{
			Track:    int(id[0]),
			Side:     int(id[1]),
			Sector:   int(id[2]),
			SizeCode: int(id[3]),
			HeaderOK: headerOK,
			SyncBit:  syncPos,
		}

		// Data sync must follow within the lookahead or the sector is
		// abandoned and scanning restarts.
		dataSync, ok := findIBMSync(bs, fieldPos, fieldPos+opts.SyncLookahead+48)
		if !ok {
			pos = fieldPos
			continue
		}
		dataPos := dataSync + 48

		dmark, ok := bs.clockedByteAt(dataPos)
		if !ok {
			return result
		}
		if dmark != dam && dmark != ddam {
			// Could be the next sector's ID mark; rescan from the sync.
			pos = dataSync
			continue
		}
		dataPos += 16
		record.Deleted = dmark == ddam

		size := 128 << record.SizeCode
		record.Data = make([]byte, size)
		crc = CRC16(opts.CRCInit, []byte{0xA1, 0xA1, 0xA1, dmark})
		dataComplete := true
		for i := 0; i < size; i++ {
			b, ok := bs.clockedByteAt(dataPos)
			if !ok {
				dataComplete = false
				break
			}
			record.Data[i] = b
			crc = CRC16Byte(crc, b)
			dataPos += 16
		}
		if !dataComplete {
			return result
		}
		crcHi, ok1 = bs.clockedByteAt(dataPos)
		crcLo, ok2 = bs.clockedByteAt(dataPos + 16)
		if !ok1 || !ok2 {
			return result
		}
		dataPos += 32
		record.DataOK = crc == uint16(crcHi)<<8|uint16(crcLo)

		result.Records = append(result.Records, record)
		pos = dataPos
	}
}

type fmDecoder struct{}

// findFMMark scans for any FM address mark in [start, end) and returns
// its position and decoded mark byte.
func findFMMark(bs *Bitstream, start, end int) (int, byte, bool) {
	if end > bs.Len() {
		end = bs.Len()
	}
	for pos := start; pos+16 <= end; pos++ {
		w, _ := bs.wordAt(pos)
		switch w {
		case fmIDAMRaw:
			return pos, idam, true
		case fmDAMRaw:
			return pos, dam, true
		case fmDDAMRaw:
			return pos, ddam, true
		}
	}
	return 0, 0, false
}

func (d *fmDecoder) extract(bs *Bitstream, opts *Options) Result {
	var result Result
	pos := 0

	for {
		if len(result.Records) >= opts.MaxSectors {
			if _, _, more := findFMMark(bs, pos, bs.Len()); more {
				result.Truncated = true
			}
			return result
		}

		syncPos, mark, ok := findFMMark(bs, pos, bs.Len())
		if !ok {
			return result
		}
		if mark != idam {
			pos = syncPos + 16
			continue
		}
		fieldPos := syncPos + 16

		var id [4]byte
		idOK := true
		for i := range id {
			id[i], ok = bs.clockedByteAt(fieldPos)
			if !ok {
				idOK = false
				break
			}
			fieldPos += 16
		}
		if !idOK {
			return result
		}
		crcHi, ok1 := bs.clockedByteAt(fieldPos)
		crcLo, ok2 := bs.clockedByteAt(fieldPos + 16)
		if !ok1 || !ok2 {
			return result
		}
		fieldPos += 32
		storedCRC := uint16(crcHi)<<8 | uint16(crcLo)

		// FM has no sync bytes in front of the mark; the CRC covers the
		// mark and the ID field only.
		crc := CRC16Byte(opts.CRCInit, idam)
		crc = CRC16(crc, id[:])
		headerOK := crc == storedCRC

		if id[3] > 7 {
			pos = syncPos + 16
			continue
		}

		record := Record{
			Track:    int(id[0]),
			Side:     int(id[1]),
			Sector:   int(id[2]),
			SizeCode: int(id[3]),
			HeaderOK: headerOK,
			SyncBit:  syncPos,
		}

		dataSync, dmark, ok := findFMMark(bs, fieldPos, fieldPos+opts.SyncLookahead+16)
		if !ok {
			pos = fieldPos
			continue
		}
		if dmark == idam {
			pos = dataSync
			continue
		}
		dataPos := dataSync + 16
		record.Deleted = dmark == ddam

		size := 128 << record.SizeCode
		record.Data = make([]byte, size)
		crc = CRC16Byte(opts.CRCInit, dmark)
		dataComplete := true
		for i := 0; i < size; i++ {
			b, ok := bs.clockedByteAt(dataPos)
			if !ok {
				dataComplete = false
				break
			}
			record.Data[i] = b
			crc = CRC16Byte(crc, b)
			dataPos += 16
		}
		if !dataComplete {
			return result
		}
		crcHi, ok1 = bs.clockedByteAt(dataPos)
		crcLo, ok2 = bs.clockedByteAt(dataPos + 16)
		if !ok1 || !ok2 {
			return result
		}
		dataPos += 32
		record.DataOK = crc == uint16(crcHi)<<8|uint16(crcLo)

		result.Records = append(result.Records, record)
		pos = dataPos
	}
}

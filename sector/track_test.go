package sector

// Synthetic track builders shared by the extractor tests. Each writer
// produces a raw bitstream the way the real encoding would lay it out,
// so the tests exercise the same paths as captured flux.

// mfmWriter emits clock/data bit pairs following the MFM clock rule.
type mfmWriter struct {
	bits     []bool
	lastData bool
}

func (w *mfmWriter) writeBit(d bool) {
	clock := !w.lastData && !d
	w.bits = append(w.bits, clock, d)
	w.lastData = d
}

func (w *mfmWriter) writeByte(b byte) {
	for i := 7; i >= 0; i-- {
		w.writeBit(b>>i&1 == 1)
	}
}

func (w *mfmWriter) writeBytes(bs ...byte) {
	for _, b := range bs {
		w.writeByte(b)
	}
}

// writeRawWord emits 16 raw bits as-is, used for sync words with missing
// clock bits.
func (w *mfmWriter) writeRawWord(word uint16) {
	for i := 15; i >= 0; i-- {
		w.bits = append(w.bits, word>>i&1 == 1)
	}
	w.lastData = word&1 == 1
}

func (w *mfmWriter) writeGap(b byte, n int) {
	for i := 0; i < n; i++ {
		w.writeByte(b)
	}
}

func (w *mfmWriter) writeSync() {
	w.writeGap(0x00, 12)
	w.writeRawWord(mfmSyncWord)
	w.writeRawWord(mfmSyncWord)
	w.writeRawWord(mfmSyncWord)
}

// mfmSectorSpec describes one synthetic IBM MFM sector.
type mfmSectorSpec struct {
	track, side, sector, size int
	data                      []byte
	deleted                   bool
	corruptDataCRC            bool
	corruptHeaderCRC          bool
	mark                      byte // nonzero overrides the ID mark byte
	gapBeforeData             int  // extra gap bytes before the data sync
}

// buildMFMTrack lays out sectors the way an IBM System/34 track does.
func buildMFMTrack(sectors []mfmSectorSpec) []bool {
	return buildMFMTrackSeeded(DefaultCRCInit, sectors)
}

// buildMFMTrackSeeded is buildMFMTrack with a caller-chosen CRC seed,
// for formats that start the checksum from something other than 0xFFFF.
func buildMFMTrackSeeded(seed uint16, sectors []mfmSectorSpec) []bool {
	w := &mfmWriter{}
	w.writeGap(0x4E, 16)

	for _, s := range sectors {
		w.writeSync()
		mark := byte(idam)
		if s.mark != 0 {
			mark = s.mark
		}
		id := []byte{byte(s.track), byte(s.side), byte(s.sector), byte(s.size)}
		w.writeByte(mark)
		w.writeBytes(id...)
		crc := CRC16(seed, []byte{0xA1, 0xA1, 0xA1, mark})
		crc = CRC16(crc, id)
		if s.corruptHeaderCRC {
			crc ^= 0x5A5A
		}
		w.writeBytes(byte(crc>>8), byte(crc))

		w.writeGap(0x4E, 22+s.gapBeforeData)

		w.writeSync()
		dmark := byte(dam)
		if s.deleted {
			dmark = ddam
		}
		w.writeByte(dmark)
		crc = CRC16(seed, []byte{0xA1, 0xA1, 0xA1, dmark})
		for _, b := range s.data {
			w.writeByte(b)
			crc = CRC16Byte(crc, b)
		}
		if s.corruptDataCRC {
			crc ^= 0x5A5A
		}
		w.writeBytes(byte(crc>>8), byte(crc))
		w.writeGap(0x4E, 24)
	}
	w.writeGap(0x4E, 16)
	return w.bits
}

// fmWriter emits FM bit pairs: every data bit gets a 1 clock.
type fmWriter struct {
	bits []bool
}

func (w *fmWriter) writeByte(b byte) {
	for i := 7; i >= 0; i-- {
		w.bits = append(w.bits, true, b>>i&1 == 1)
	}
}

func (w *fmWriter) writeRawWord(word uint16) {
	for i := 15; i >= 0; i-- {
		w.bits = append(w.bits, word>>i&1 == 1)
	}
}

func (w *fmWriter) writeGap(b byte, n int) {
	for i := 0; i < n; i++ {
		w.writeByte(b)
	}
}

// buildFMTrack lays out single-density sectors: a mark with missing
// clocks opens each field directly.
func buildFMTrack(sectors []mfmSectorSpec) []bool {
	w := &fmWriter{}
	w.writeGap(0xFF, 16)

	for _, s := range sectors {
		w.writeGap(0x00, 6)
		w.writeRawWord(fmIDAMRaw)
		id := []byte{byte(s.track), byte(s.side), byte(s.sector), byte(s.size)}
		for _, b := range id {
			w.writeByte(b)
		}
		crc := CRC16Byte(DefaultCRCInit, idam)
		crc = CRC16(crc, id)
		if s.corruptHeaderCRC {
			crc ^= 0x5A5A
		}
		w.writeByte(byte(crc >> 8))
		w.writeByte(byte(crc))

		w.writeGap(0xFF, 11)
		w.writeGap(0x00, 6)
		markRaw := uint16(fmDAMRaw)
		dmark := byte(dam)
		if s.deleted {
			markRaw = fmDDAMRaw
			dmark = ddam
		}
		w.writeRawWord(markRaw)
		crc = CRC16Byte(DefaultCRCInit, dmark)
		for _, b := range s.data {
			w.writeByte(b)
			crc = CRC16Byte(crc, b)
		}
		if s.corruptDataCRC {
			crc ^= 0x5A5A
		}
		w.writeByte(byte(crc >> 8))
		w.writeByte(byte(crc))
		w.writeGap(0xFF, 12)
	}
	return w.bits
}

// amigaWriter emits raw longwords; clock bits stay zero, which the
// masked checksums ignore just like real hardware does.
type amigaWriter struct {
	bits []bool
}

func (w *amigaWriter) writeRawLong(v uint32) {
	for i := 31; i >= 0; i-- {
		w.bits = append(w.bits, v>>i&1 == 1)
	}
}

func (w *amigaWriter) writeRawWord(v uint16) {
	for i := 15; i >= 0; i-- {
		w.bits = append(w.bits, v>>i&1 == 1)
	}
}

func splitOddEven(v uint32) (odd, even uint32) {
	return v >> 1 & amigaMask, v & amigaMask
}

type amigaSectorSpec struct {
	track, side, sector int
	toGap               int
	data                []byte // 512 bytes
	corruptDataChk      bool
}

// buildAmigaTrack lays out AmigaDOS sectors behind doubled sync words.
func buildAmigaTrack(sectors []amigaSectorSpec) []bool {
	w := &amigaWriter{}
	w.writeRawLong(0xAAAAAAAA) // pre-sync gap

	for _, s := range sectors {
		w.writeRawWord(mfmSyncWord)
		w.writeRawWord(mfmSyncWord)

		trackByte := byte(s.track<<1 | s.side)
		info := uint32(0xFF)<<24 | uint32(trackByte)<<16 | uint32(s.sector)<<8 | uint32(s.toGap)
		infoOdd, infoEven := splitOddEven(info)

		headerXor := infoOdd ^ infoEven // label longwords are zero
		w.writeRawLong(infoOdd)
		w.writeRawLong(infoEven)
		for i := 0; i < 8; i++ {
			w.writeRawLong(0) // label odd+even blocks
		}

		hchkOdd, hchkEven := splitOddEven(headerXor & amigaMask)
		w.writeRawLong(hchkOdd)
		w.writeRawLong(hchkEven)

		// Data split into odd and even blocks of 128 longwords each.
		odds := make([]uint32, 128)
		evens := make([]uint32, 128)
		var dataXor uint32
		for i := 0; i < 128; i++ {
			v := uint32(s.data[i*4])<<24 | uint32(s.data[i*4+1])<<16 |
				uint32(s.data[i*4+2])<<8 | uint32(s.data[i*4+3])
			odds[i], evens[i] = splitOddEven(v)
			dataXor ^= odds[i] ^ evens[i]
		}
		if s.corruptDataChk {
			dataXor ^= 0x00400400
		}
		dchkOdd, dchkEven := splitOddEven(dataXor & amigaMask)
		w.writeRawLong(dchkOdd)
		w.writeRawLong(dchkEven)
		for _, v := range odds {
			w.writeRawLong(v)
		}
		for _, v := range evens {
			w.writeRawLong(v)
		}
		w.writeRawLong(0xAAAAAAAA)
	}
	return w.bits
}

// gcrWriter emits raw bits with 5-bit GCR groups.
type gcrWriter struct {
	bits []bool
}

func (w *gcrWriter) writeSync() {
	for i := 0; i < 12; i++ {
		w.bits = append(w.bits, true)
	}
}

func (w *gcrWriter) writeGCRByte(b byte) {
	for _, group := range []byte{gcrEncode[b>>4], gcrEncode[b&0x0F]} {
		for i := 4; i >= 0; i-- {
			w.bits = append(w.bits, group>>i&1 == 1)
		}
	}
}

func (w *gcrWriter) writeGap(n int) {
	// Alternating bits keep the gap free of accidental sync runs.
	for i := 0; i < n; i++ {
		w.bits = append(w.bits, i%2 == 0)
	}
}

type c64SectorSpec struct {
	track, sector  int
	id1, id2       byte
	data           []byte // 256 bytes
	corruptHeader  bool
	corruptDataChk bool
}

// buildC64Track lays out 1541-style header and data blocks.
func buildC64Track(sectors []c64SectorSpec) []bool {
	w := &gcrWriter{}
	w.writeGap(64)

	for _, s := range sectors {
		w.writeSync()
		cksum := byte(s.sector) ^ byte(s.track) ^ s.id2 ^ s.id1
		if s.corruptHeader {
			cksum ^= 0x55
		}
		w.writeGCRByte(gcrHeaderMark)
		w.writeGCRByte(cksum)
		w.writeGCRByte(byte(s.sector))
		w.writeGCRByte(byte(s.track))
		w.writeGCRByte(s.id2)
		w.writeGCRByte(s.id1)
		w.writeGap(90)

		w.writeSync()
		w.writeGCRByte(gcrDataMark)
		var xor byte
		for _, b := range s.data {
			w.writeGCRByte(b)
			xor ^= b
		}
		if s.corruptDataChk {
			xor ^= 0x55
		}
		w.writeGCRByte(xor)
		w.writeGap(120)
	}
	return w.bits
}

// appleWriter emits byte-aligned disk nibbles.
type appleWriter struct {
	bits []bool
}

func (w *appleWriter) writeByte(b byte) {
	for i := 7; i >= 0; i-- {
		w.bits = append(w.bits, b>>i&1 == 1)
	}
}

func (w *appleWriter) write44(b byte) {
	w.writeByte(b>>1 | 0xAA)
	w.writeByte(b | 0xAA)
}

type appleSectorSpec struct {
	volume, track, sector int
	data                  []byte // 256 bytes
	corruptDataChk        bool
}

// buildAppleTrack lays out 6-and-2 sectors with standard prologues.
func buildAppleTrack(sectors []appleSectorSpec) []bool {
	w := &appleWriter{}
	for i := 0; i < 8; i++ {
		w.writeByte(0xFF)
	}

	for _, s := range sectors {
		w.writeByte(0xD5)
		w.writeByte(0xAA)
		w.writeByte(0x96)
		w.write44(byte(s.volume))
		w.write44(byte(s.track))
		w.write44(byte(s.sector))
		w.write44(byte(s.volume) ^ byte(s.track) ^ byte(s.sector))
		w.writeByte(0xDE)
		w.writeByte(0xAA)
		w.writeByte(0xEB)
		for i := 0; i < 5; i++ {
			w.writeByte(0xFF)
		}

		w.writeByte(0xD5)
		w.writeByte(0xAA)
		w.writeByte(0xAD)

		// Prenibble: 86 packed low-bit values written in reverse order,
		// then 256 high-six-bit values, all chained through XOR.
		var aux [86]byte
		var main [256]byte
		for i, b := range s.data {
			main[i] = b >> 2
			aux[i%86] |= swap2(b&3) << (2 * (i / 86))
		}
		var vals []byte
		for i := 85; i >= 0; i-- {
			vals = append(vals, aux[i])
		}
		vals = append(vals, main[:]...)

		prev := byte(0)
		for _, v := range vals {
			w.writeByte(apple62Encode[v^prev])
			prev = v
		}
		if s.corruptDataChk {
			prev ^= 0x15
		}
		w.writeByte(apple62Encode[prev])
		w.writeByte(0xDE)
		w.writeByte(0xAA)
		w.writeByte(0xEB)
		for i := 0; i < 6; i++ {
			w.writeByte(0xFF)
		}
	}
	return w.bits
}

// patternData fills n bytes with a deterministic per-sector pattern.
func patternData(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)*3 + seed
	}
	return data
}

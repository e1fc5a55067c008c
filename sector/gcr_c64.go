package sector

// Commodore 1541 GCR layout: a sync is a run of ten or more 1-bits, each
// byte is two 5-bit GCR groups, the header block (0x08) carries an XOR
// checksum over sector/track/id and the data block (0x07) one over its
// 256 payload bytes.

const (
	gcrSyncRun    = 10
	gcrHeaderMark = 0x08
	gcrDataMark   = 0x07
	gcrInvalid    = 0xFF
)

// gcrDecode maps a 5-bit GCR group to its 4-bit value, 0xFF = illegal.
var gcrDecode = [32]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0x08, 0x00, 0x01, 0xFF, 0x0C, 0x04, 0x05,
	0xFF, 0xFF, 0x02, 0x03, 0xFF, 0x0F, 0x06, 0x07,
	0xFF, 0x09, 0x0A, 0x0B, 0xFF, 0x0D, 0x0E, 0xFF,
}

// gcrEncode is the inverse table, used by the track synthesizers in the
// tests and tooling.
var gcrEncode = [16]byte{
	0x0A, 0x0B, 0x12, 0x13, 0x0E, 0x0F, 0x16, 0x17,
	0x09, 0x19, 0x1A, 0x1B, 0x0D, 0x1D, 0x1E, 0x15,
}

func init() {
	registerDecoder(VariantC64, func() decoder { return &c64Decoder{} })
}

type c64Decoder struct{}

// findGCRSync locates a run of >= 10 one-bits in [start, end) and returns
// the position just past it.
func findGCRSync(bs *Bitstream, start, end int) (int, bool) {
	if end > bs.Len() {
		end = bs.Len()
	}
	ones := 0
	for pos := start; pos < end; pos++ {
		if !bs.At(pos) {
			ones = 0
			continue
		}
		ones++
		if ones >= gcrSyncRun {
			// Skip the rest of the run; data starts at the first zero.
			for pos+1 < bs.Len() && bs.At(pos+1) {
				pos++
			}
			return pos + 1, true
		}
	}
	return 0, false
}

// gcrByteAt decodes one byte from two 5-bit groups. The second return is
// false for illegal groups or reads past the end.
func gcrByteAt(bs *Bitstream, pos int) (byte, bool) {
	if pos+10 > bs.Len() {
		return 0, false
	}
	var hi, lo byte
	for i := 0; i < 5; i++ {
		hi <<= 1
		if bs.At(pos + i) {
			hi |= 1
		}
		lo <<= 1
		if bs.At(pos + 5 + i) {
			lo |= 1
		}
	}
	h, l := gcrDecode[hi], gcrDecode[lo]
	if h == gcrInvalid || l == gcrInvalid {
		return 0, false
	}
	return h<<4 | l, true
}

func (d *c64Decoder) extract(bs *Bitstream, opts *Options) Result {
	var result Result
	pos := 0

	for {
		if len(result.Records) >= opts.MaxSectors {
			if _, ok := findGCRSync(bs, pos, bs.Len()); ok {
				result.Truncated = true
			}
			return result
		}

		syncEnd, ok := findGCRSync(bs, pos, bs.Len())
		if !ok {
			return result
		}

		blockType, ok := gcrByteAt(bs, syncEnd)
		if !ok || blockType != gcrHeaderMark {
			// Data block without a header, or an illegal group; resume
			// after this sync.
			pos = syncEnd + 10
			continue
		}
		p := syncEnd + 10

		// Header: checksum, sector, track, id2, id1.
		var hdr [5]byte
		hdrOK := true
		for i := range hdr {
			hdr[i], ok = gcrByteAt(bs, p)
			if !ok {
				hdrOK = false
				break
			}
			p += 10
		}
		if !hdrOK {
			pos = syncEnd + 10
			continue
		}
		cksum, sect, trk, id2, id1 := hdr[0], hdr[1], hdr[2], hdr[3], hdr[4]

		record := Record{
			Track:    int(trk),
			Sector:   int(sect),
			SizeCode: 1, // 256-byte sectors
			HeaderOK: sect^trk^id2^id1 == cksum,
			SyncBit:  syncEnd,
		}

		// The data block follows behind its own sync within the lookahead.
		dataSync, ok := findGCRSync(bs, p, p+opts.SyncLookahead)
		if !ok {
			pos = p
			continue
		}
		marker, ok := gcrByteAt(bs, dataSync)
		if !ok || marker != gcrDataMark {
			pos = dataSync
			continue
		}
		dp := dataSync + 10

		record.Data = make([]byte, 256)
		var xor byte
		dataComplete := true
		for i := range record.Data {
			record.Data[i], ok = gcrByteAt(bs, dp)
			if !ok {
				dataComplete = false
				break
			}
			xor ^= record.Data[i]
			dp += 10
		}
		if !dataComplete {
			pos = dp
			continue
		}
		readCk, ok := gcrByteAt(bs, dp)
		dp += 10
		record.DataOK = ok && xor == readCk

		result.Records = append(result.Records, record)
		pos = dp
	}
}

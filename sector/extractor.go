package sector

import (
	"fmt"

	"github.com/sergev/fluxkit/classify"
)

// Variant selects the field-decoder for a track's low-level layout. The
// Classifier narrows a track to FM/MFM/GCR; the variant refines that to a
// concrete sector format.
type Variant int

const (
	VariantAuto Variant = iota // detect from sync signatures
	VariantMFM                 // IBM System/34 style MFM
	VariantFM                  // IBM 3740 style FM (single density)
	VariantAmiga               // AmigaDOS MFM with odd/even split
	VariantC64                 // Commodore 1541 GCR
	VariantApple               // Apple II 6-and-2 GCR
)

func (v Variant) String() string {
	switch v {
	case VariantMFM:
		return "MFM"
	case VariantFM:
		return "FM"
	case VariantAmiga:
		return "Amiga"
	case VariantC64:
		return "C64 GCR"
	case VariantApple:
		return "Apple GCR"
	default:
		return "auto"
	}
}

const (
	// DefaultMaxSectors bounds emission per track.
	DefaultMaxSectors = 64
	// DefaultSyncLookahead is how far past an ID field the data sync may
	// trail before the sector is abandoned (about 50 bytes of MFM).
	DefaultSyncLookahead = 800
)

// Options tunes one extraction pass.
type Options struct {
	Variant       Variant
	MaxSectors    int    // 0 means DefaultMaxSectors
	SyncLookahead int    // 0 means DefaultSyncLookahead
	CRCInit       uint16 // 0 means DefaultCRCInit unless CRCInitSet
	CRCInitSet    bool   // honor CRCInit as given, allowing a zero seed
}

func (o *Options) fill() {
	if o.MaxSectors == 0 {
		o.MaxSectors = DefaultMaxSectors
	}
	if o.SyncLookahead == 0 {
		o.SyncLookahead = DefaultSyncLookahead
	}
	if o.CRCInit == 0 && !o.CRCInitSet {
		o.CRCInit = DefaultCRCInit
	}
}

// Record is one extracted sector. Records with failing checksums are
// still emitted, flagged, so recovery stages can work on them; a Record
// is never mutated after emission.
type Record struct {
	Track    int
	Side     int
	Sector   int
	SizeCode int    // data length is 128 << SizeCode
	Data     []byte // decoded payload
	HeaderOK bool   // ID-field checksum matched
	DataOK   bool   // data-field checksum matched
	Deleted  bool   // deleted-data address mark
	SyncBit  int    // bit offset of the sync mark that opened this sector
}

// Result is one extraction pass over a track.
type Result struct {
	Variant   Variant
	Records   []Record
	Truncated bool // stopped at MaxSectors with input remaining
}

// decoder is the closed set of per-variant field decoders.
type decoder interface {
	extract(bs *Bitstream, opts *Options) Result
}

var registeredDecoders = map[Variant]func() decoder{}

// registerDecoder wires a variant's decoder factory. Called from each
// variant's init.
func registerDecoder(v Variant, factory func() decoder) {
	registeredDecoders[v] = factory
}

// Extract scans a decoded bitstream for sectors. With VariantAuto the
// layout is detected from sync signatures, falling back to the
// classifier's encoding tag.
func Extract(bits []bool, encoding classify.Encoding, opts Options) (Result, error) {
	if len(bits) == 0 {
		return Result{}, fmt.Errorf("empty bitstream")
	}
	opts.fill()

	bs := NewBitstream(bits)
	variant := opts.Variant
	if variant == VariantAuto {
		variant = DetectVariant(bs, encoding)
	}
	if variant == VariantAuto {
		// Nothing recognizable; an empty result, not an error, so the
		// caller can still report the track as unreadable.
		return Result{}, nil
	}

	factory, ok := registeredDecoders[variant]
	if !ok {
		return Result{}, fmt.Errorf("no decoder for variant %v", variant)
	}
	result := factory().extract(bs, &opts)
	result.Variant = variant
	return result, nil
}

// DetectVariant inspects sync signatures to refine the classifier's
// encoding tag into a concrete layout. Amiga is probed before IBM MFM
// because Amiga tracks also contain plain 0x4489 words.
func DetectVariant(bs *Bitstream, encoding classify.Encoding) Variant {
	const needed = 5

	switch encoding {
	case classify.MFM:
		if countAmigaSyncs(bs, needed) >= needed {
			return VariantAmiga
		}
		if countMFMSyncs(bs, needed) >= needed {
			return VariantMFM
		}
		// A two-cell histogram also fits a raw FM stream, which carries
		// no 0x4489 words at all. Check for FM address marks before
		// settling on MFM.
		if countFMMarks(bs, needed) >= needed {
			return VariantFM
		}
		return VariantMFM
	case classify.FM:
		return VariantFM
	case classify.GCR:
		if countApplePrologues(bs, needed) >= needed {
			return VariantApple
		}
		return VariantC64
	}

	// Unknown encoding: probe all signatures.
	if countAmigaSyncs(bs, needed) >= needed {
		return VariantAmiga
	}
	if countMFMSyncs(bs, needed) >= needed {
		return VariantMFM
	}
	if countFMMarks(bs, needed) >= needed {
		return VariantFM
	}
	if countApplePrologues(bs, needed) >= needed {
		return VariantApple
	}
	if countGCRSyncRuns(bs, needed) >= needed {
		return VariantC64
	}
	return VariantAuto
}

func countMFMSyncs(bs *Bitstream, limit int) int {
	count := 0
	for pos := 0; pos+48 <= bs.Len() && count < limit; pos++ {
		w1, _ := bs.wordAt(pos)
		w2, _ := bs.wordAt(pos + 16)
		w3, _ := bs.wordAt(pos + 32)
		if w1 == mfmSyncWord && w2 == mfmSyncWord && w3 == mfmSyncWord {
			count++
			pos += 47
		}
	}
	return count
}

// countAmigaSyncs counts doubled sync words that are not part of an IBM
// triple, which also contains back-to-back sync pairs.
func countAmigaSyncs(bs *Bitstream, limit int) int {
	count := 0
	for pos := 0; pos+32 <= bs.Len() && count < limit; pos++ {
		w1, _ := bs.wordAt(pos)
		w2, _ := bs.wordAt(pos + 16)
		if w1 != mfmSyncWord || w2 != mfmSyncWord {
			continue
		}
		if w3, ok := bs.wordAt(pos + 32); ok && w3 == mfmSyncWord {
			pos += 47 // IBM triple, not an Amiga sector
			continue
		}
		count++
		pos += 31
	}
	return count
}

// countFMMarks counts FM address marks, recognizable by their missing
// clock bits in the raw word.
func countFMMarks(bs *Bitstream, limit int) int {
	count := 0
	for pos := 0; pos+16 <= bs.Len() && count < limit; pos++ {
		w, _ := bs.wordAt(pos)
		if w == fmIDAMRaw || w == fmDAMRaw || w == fmDDAMRaw {
			count++
			pos += 15
		}
	}
	return count
}

func countApplePrologues(bs *Bitstream, limit int) int {
	count := 0
	for pos := 0; pos+24 <= bs.Len() && count < limit; pos++ {
		if matchBytes(bs, pos, 0xD5, 0xAA, 0x96) || matchBytes(bs, pos, 0xD5, 0xAA, 0xAD) {
			count++
			pos += 23
		}
	}
	return count
}

func countGCRSyncRuns(bs *Bitstream, limit int) int {
	count := 0
	ones := 0
	for pos := 0; pos < bs.Len() && count < limit; pos++ {
		if bs.At(pos) {
			ones++
		} else {
			if ones >= gcrSyncRun {
				count++
			}
			ones = 0
		}
	}
	return count
}

func matchBytes(bs *Bitstream, pos int, bytes ...byte) bool {
	for i, expected := range bytes {
		b, ok := bs.byteAt(pos + i*8)
		if !ok || b != expected {
			return false
		}
	}
	return true
}

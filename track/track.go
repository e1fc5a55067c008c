// Package track runs the full decode pipeline for one track: encoding
// classification, PLL bit recovery, multi-revolution consensus, sector
// extraction, bit-flip correction and quality scoring.
package track

import (
	"fmt"

	"github.com/sergev/fluxkit/classify"
	"github.com/sergev/fluxkit/config"
	"github.com/sergev/fluxkit/consensus"
	"github.com/sergev/fluxkit/correct"
	"github.com/sergev/fluxkit/flux"
	"github.com/sergev/fluxkit/pll"
	"github.com/sergev/fluxkit/quality"
	"github.com/sergev/fluxkit/sector"
)

const defaultNominalRPM = 300

// Options configures one track decode.
type Options struct {
	Params config.Params

	Track int
	Side  int

	// NominalRPM is the expected spindle speed, 300 when zero.
	NominalRPM float64

	// ExpectedSectors, when set, lets the report count missing sectors.
	ExpectedSectors int
}

// Result is everything the pipeline recovered from one track.
type Result struct {
	Encoding classify.Encoding
	Variant  sector.Variant
	CellNs   uint64

	Bits    []bool
	Sectors []sector.Record

	Weak        []consensus.WeakRegion
	Protection  consensus.Assessment
	Corrections []correct.Audit

	Report    quality.TrackReport
	Truncated bool
}

// Decode runs the pipeline over one or more revolutions of the same
// track. Extra revolutions feed the consensus pass; one revolution
// still decodes, without weak-bit detection.
func Decode(revs []*flux.Revolution, opts Options) (*Result, error) {
	if len(revs) == 0 {
		return nil, fmt.Errorf("no revolutions")
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	for i, rev := range revs {
		if rev == nil || len(rev.Transitions) == 0 {
			return nil, fmt.Errorf("revolution %d is empty", i)
		}
	}

	result := &Result{}

	// Classification: the histogram decides unless the caller pinned the
	// encoding. The classifier's cell estimate beats the configured rate
	// when it has one.
	hint, variant := encodingHint(opts.Params.Encoding)
	detected := classify.DetectIntervals(revs[0].Intervals(), revs[0].ClockHz)
	result.Encoding = detected.Encoding
	if hint != classify.Unknown {
		result.Encoding = hint
	}
	cellNs := uint64(opts.Params.CellNs())
	if hint == classify.Unknown && detected.CellNs != 0 {
		cellNs = detected.CellNs
	}
	result.CellNs = cellNs

	// PLL pass per revolution. The first revolution also records where
	// each flux interval landed in the bitstream, so interval-domain weak
	// regions can be mapped onto bits later.
	pllOpts := pll.Options{
		CellNs:        cellNs,
		ClockHz:       revs[0].ClockHz,
		WindowPercent: windowPercent(opts.Params.SyncTolerance),
		FastGain:      opts.Params.FastGain,
		SlowGain:      opts.Params.SlowGain,
		// Snap rejection assumes half-bit-rate captures; the sector
		// decoders here consume full-rate bitstreams where interval
		// counts of 1 and 3 cells are legal, so leave it off.
		Rejection:     pll.RejectNone,
		Track:         opts.Track,
	}

	decoded := make([][]bool, len(revs))
	var bitOffsets []int
	var lockSum float64
	for i, rev := range revs {
		dec, err := pll.NewDecoder(pllOpts)
		if err != nil {
			return nil, fmt.Errorf("pll: %w", err)
		}
		source := flux.NewSliceSource(rev.Transitions)
		if i == 0 {
			decoded[i], bitOffsets = decodeWithOffsets(dec, source)
		} else {
			decoded[i] = dec.DecodeBits(source)
		}
		stats := dec.Stats()
		lockSum += stats.LockQuality()
	}
	lockQuality := lockSum / float64(len(revs))

	// Consensus across revolutions.
	bits := decoded[0]
	if len(revs) >= 2 {
		cmp, err := consensus.CompareAll(revs, consensus.Options{
			DiffThreshold: opts.Params.WeakThreshold,
			CellNs:        cellNs,
		})
		if err != nil {
			return nil, fmt.Errorf("consensus: %w", err)
		}
		result.Weak = cmp.Regions
	}
	if len(revs) >= 3 {
		fused, _, err := consensus.FuseBits(decoded)
		if err == nil {
			bits = fused
		}
	}
	result.Bits = bits

	extractOpts := sector.Options{
		Variant:    variant,
		MaxSectors: opts.Params.MaxSectors,
	}
	extracted, err := sector.Extract(bits, result.Encoding, extractOpts)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	result.Variant = extracted.Variant
	result.Sectors = extracted.Records
	result.Truncated = extracted.Truncated

	// Correction: try flipping bits inside weak regions when sectors
	// failed their checksums. The oracle is a full re-extraction that
	// must strictly raise the clean-sector count.
	good, bad := tally(result.Sectors)
	if bad > 0 && len(result.Weak) > 0 && len(bitOffsets) > 0 {
		result.Corrections = correctWeakRegions(result, bits, bitOffsets, good, extractOpts, opts.Params.MaxFlips)
		if len(result.Corrections) > 0 {
			extracted, err = sector.Extract(bits, result.Encoding, extractOpts)
			if err == nil {
				result.Sectors = extracted.Records
				result.Truncated = extracted.Truncated
			}
		}
	}

	// Protection: signature scan over recovered payloads, weighed with
	// the weak-region evidence.
	scheme := consensus.SchemeNone
	for _, rec := range result.Sectors {
		if s := consensus.ScanSignatures(rec.Data); s != consensus.SchemeNone {
			scheme = s
			break
		}
	}
	result.Protection = consensus.Assess(scheme, result.Weak)

	result.Report = buildReport(result, revs[0], opts, lockQuality)
	return result, nil
}

// encodingHint maps a configured encoding name onto the classifier tag
// and sector variant it implies. "auto" leaves both open.
func encodingHint(name string) (classify.Encoding, sector.Variant) {
	switch name {
	case "mfm":
		return classify.MFM, sector.VariantMFM
	case "fm":
		return classify.FM, sector.VariantFM
	case "amiga":
		return classify.MFM, sector.VariantAmiga
	case "c64":
		return classify.GCR, sector.VariantC64
	case "apple":
		return classify.GCR, sector.VariantApple
	default:
		return classify.Unknown, sector.VariantAuto
	}
}

// windowPercent converts the sync tolerance fraction into the PLL's
// clamp range, bounded to what the loop accepts.
func windowPercent(tolerance float64) int {
	pct := int(tolerance*100 + 0.5)
	if pct < 1 {
		pct = 1
	}
	if pct > 50 {
		pct = 50
	}
	return pct
}

// decodeWithOffsets runs the PLL and records the bit position at which
// each interval's cells begin.
func decodeWithOffsets(dec *pll.Decoder, source flux.Source) ([]bool, []int) {
	var bits []bool
	var offsets []int
	for {
		cell, ok := dec.NextCell(source)
		if !ok {
			break
		}
		offsets = append(offsets, len(bits))
		bits = pll.AppendBits(bits, cell)
	}
	return bits, offsets
}

// correctWeakRegions maps interval-domain weak regions onto bit spans
// and searches each for a flip set that yields more clean sectors.
func correctWeakRegions(result *Result, bits []bool, bitOffsets []int, baselineGood int, extractOpts sector.Options, maxFlips int) []correct.Audit {
	verify := func(candidate []bool) bool {
		r, err := sector.Extract(candidate, result.Encoding, extractOpts)
		if err != nil {
			return false
		}
		g, _ := tally(r.Records)
		return g > baselineGood
	}

	var audits []correct.Audit
	for _, region := range result.Weak {
		start, length, ok := bitSpan(bitOffsets, len(bits), region)
		if !ok {
			continue
		}
		audit, err := correct.Region(bits, start, length, verify, correct.Options{MaxFlips: maxFlips})
		if err != nil {
			continue
		}
		audits = append(audits, audit)
		baselineGood++
	}
	return audits
}

// bitSpan translates an interval-indexed weak region into a bit range.
func bitSpan(offsets []int, totalBits int, region consensus.WeakRegion) (start, length int, ok bool) {
	if region.Start >= len(offsets) {
		return 0, 0, false
	}
	start = offsets[region.Start]
	end := totalBits
	if next := region.Start + region.Length; next < len(offsets) {
		end = offsets[next]
	}
	if end <= start {
		return 0, 0, false
	}
	return start, end - start, true
}

func tally(records []sector.Record) (good, bad int) {
	for _, rec := range records {
		if rec.HeaderOK && rec.DataOK {
			good++
		} else {
			bad++
		}
	}
	return good, bad
}

func buildReport(result *Result, rev *flux.Revolution, opts Options, lockQuality float64) quality.TrackReport {
	good, bad := tally(result.Sectors)
	report := quality.TrackReport{
		Track:       opts.Track,
		Side:        opts.Side,
		SectorsGood: good,
		SectorsBad:  bad,
		LockQuality: lockQuality,
		CRCErrors:   bad,
		Protected:   result.Protection.Protected,
		WeakRegions: len(result.Weak),
	}

	if opts.ExpectedSectors > 0 {
		seen := make(map[int]bool)
		for _, rec := range result.Sectors {
			seen[rec.Sector] = true
		}
		if missing := opts.ExpectedSectors - len(seen); missing > 0 {
			report.SectorsMissing = missing
		}
	}

	if rev.IndexTicks > 0 {
		nominal := opts.NominalRPM
		if nominal == 0 {
			nominal = defaultNominalRPM
		}
		periodNs := float64(rev.TicksToNs(rev.IndexTicks))
		if periodNs > 0 {
			rpm := 60e9 / periodNs
			report.RPMDeviation = (rpm - nominal) / nominal
		}
	}
	return report
}

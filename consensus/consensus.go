// Package consensus compares multiple revolutions of the same physical
// track to find weak bits: positions that read differently on every pass,
// usually marginal media or deliberate copy protection.
package consensus

import (
	"fmt"

	"github.com/sergev/fluxkit/flux"
)

const (
	// DefaultDriftLimitNs is the cumulative timing drift between two
	// streams that triggers a one-sample resync nudge.
	DefaultDriftLimitNs = 1_000_000 // 1 ms
	// DefaultDiffThreshold is the interval difference, as a fraction of
	// the pair average, that opens a weak region.
	DefaultDiffThreshold = 0.30
	// DefaultMaxRegionSamples caps a single region so fully
	// desynchronized streams cannot produce one track-long region.
	DefaultMaxRegionSamples = 100
	// DefaultMaxRegions bounds the result; hitting it truncates.
	DefaultMaxRegions = 256
)

// Options tunes a comparison pass. Zero fields take the defaults.
type Options struct {
	DriftLimitNs     uint64
	DiffThreshold    float64
	MaxRegionSamples int
	MaxRegions       int

	// CellNs, when set, also quantizes each interval pair to bit cells
	// and opens a region whenever the decoded cell counts differ, even
	// if the raw timing difference stays under DiffThreshold. An
	// interval pair straddling a cell boundary decodes to different
	// bits at a few percent of timing difference.
	CellNs uint64
}

func (o *Options) fill() {
	if o.DriftLimitNs == 0 {
		o.DriftLimitNs = DefaultDriftLimitNs
	}
	if o.DiffThreshold == 0 {
		o.DiffThreshold = DefaultDiffThreshold
	}
	if o.MaxRegionSamples == 0 {
		o.MaxRegionSamples = DefaultMaxRegionSamples
	}
	if o.MaxRegions == 0 {
		o.MaxRegions = DefaultMaxRegions
	}
}

// WeakRegion is a run of disagreeing samples. Start and Length index
// into the first revolution's interval sequence; Confidence is 1 minus
// the mean normalized difference observed inside the region.
type WeakRegion struct {
	Start      int
	Length     int
	Confidence float64
}

// Result is one comparison pass.
type Result struct {
	Regions   []WeakRegion
	Truncated bool // region limit reached before the streams ended
}

// Compare aligns two revolutions by elapsed time since their own index
// pulses and reports the regions where they disagree.
func Compare(a, b *flux.Revolution, opts Options) (Result, error) {
	if a == nil || b == nil {
		return Result{}, fmt.Errorf("nil revolution")
	}
	if len(a.Transitions) == 0 || len(b.Transitions) == 0 {
		return Result{}, fmt.Errorf("empty revolution")
	}
	opts.fill()

	ia, ib := a.Intervals(), b.Intervals()
	var result Result

	var elapsedA, elapsedB uint64 // ns since each stream's index pulse
	i, j := 0, 0

	// Open-region accumulator.
	regionStart := -1
	regionLen := 0
	diffSum := 0.0

	closeRegion := func() {
		if regionStart < 0 {
			return
		}
		meanDiff := diffSum / float64(regionLen)
		if meanDiff > 1 {
			meanDiff = 1
		}
		result.Regions = append(result.Regions, WeakRegion{
			Start:      regionStart,
			Length:     regionLen,
			Confidence: 1 - meanDiff,
		})
		regionStart = -1
		regionLen = 0
		diffSum = 0
	}

	for i < len(ia) && j < len(ib) {
		if len(result.Regions) >= opts.MaxRegions {
			result.Truncated = true
			return result, nil
		}

		// Bounded resync: nudge forward whichever stream fell behind.
		if elapsedA+opts.DriftLimitNs < elapsedB {
			elapsedA += a.TicksToNs(ia[i])
			i++
			continue
		}
		if elapsedB+opts.DriftLimitNs < elapsedA {
			elapsedB += b.TicksToNs(ib[j])
			j++
			continue
		}

		da := float64(a.TicksToNs(ia[i]))
		db := float64(b.TicksToNs(ib[j]))
		avg := (da + db) / 2
		diff := 0.0
		if avg > 0 {
			diff = abs(da-db) / avg
		}

		disagree := diff > opts.DiffThreshold
		if !disagree && opts.CellNs > 0 {
			disagree = cellCount(da, opts.CellNs) != cellCount(db, opts.CellNs)
		}

		if disagree {
			if regionStart < 0 {
				regionStart = i
			}
			regionLen++
			diffSum += diff
			if regionLen >= opts.MaxRegionSamples {
				closeRegion()
			}
		} else {
			closeRegion()
		}

		elapsedA += uint64(da)
		elapsedB += uint64(db)
		i++
		j++
	}
	closeRegion()
	return result, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// cellCount is the bit-cell count an interval decodes to at the nominal
// cell period.
func cellCount(ns float64, cellNs uint64) int {
	return int(ns/float64(cellNs) + 0.5)
}

// CompareAll runs pairwise comparison of the first revolution against
// each later one and merges the regions, dropping duplicates that cover
// the same start sample.
func CompareAll(revs []*flux.Revolution, opts Options) (Result, error) {
	if len(revs) < 2 {
		return Result{}, fmt.Errorf("need at least 2 revolutions, have %d", len(revs))
	}
	var merged Result
	seen := make(map[int]bool)
	for _, rev := range revs[1:] {
		r, err := Compare(revs[0], rev, opts)
		if err != nil {
			return Result{}, err
		}
		for _, region := range r.Regions {
			if seen[region.Start] {
				continue
			}
			seen[region.Start] = true
			merged.Regions = append(merged.Regions, region)
		}
		merged.Truncated = merged.Truncated || r.Truncated
	}
	return merged, nil
}

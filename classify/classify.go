// Package classify determines the modulation scheme and nominal bit-cell
// period of a track from its flux-interval histogram.
package classify

// Encoding identifies a modulation scheme.
type Encoding int

const (
	Unknown Encoding = iota
	FM
	MFM
	GCR
)

func (e Encoding) String() string {
	switch e {
	case FM:
		return "FM"
	case MFM:
		return "MFM"
	case GCR:
		return "GCR"
	default:
		return "unknown"
	}
}

const (
	// minSamples is the smallest interval population worth classifying.
	minSamples = 100
	// maxBins caps histogram memory on hostile input.
	maxBins = 1 << 16
	// searchStart skips the sub-cell noise bins at the bottom of the
	// histogram.
	searchStart = 10
	// neighborWindow is the half-width used for the local-maximum and
	// neighbour-average tests.
	neighborWindow = 4
)

// Peak is one local maximum of the interval histogram.
type Peak struct {
	Ticks      uint64  // interval value at the peak
	Count      uint32  // samples in the peak bin
	Population float64 // fraction of all samples within the peak band
}

// Histogram is a tick-quantized flux-interval distribution.
type Histogram struct {
	bins  []uint32
	total int
}

// BuildHistogram counts intervals per tick value. Intervals beyond the
// bin cap are accumulated in the last bin so the total stays honest.
func BuildHistogram(intervals []uint64) *Histogram {
	h := &Histogram{}
	maxInterval := uint64(0)
	for _, v := range intervals {
		if v > maxInterval {
			maxInterval = v
		}
	}
	size := int(maxInterval) + 1
	if size > maxBins {
		size = maxBins
	}
	if size < searchStart+neighborWindow+1 {
		size = searchStart + neighborWindow + 1
	}
	h.bins = make([]uint32, size)
	for _, v := range intervals {
		bin := int(v)
		if bin >= len(h.bins) {
			bin = len(h.bins) - 1
		}
		h.bins[bin]++
		h.total++
	}
	return h
}

// Total returns the number of samples in the histogram.
func (h *Histogram) Total() int {
	return h.total
}

// Peaks finds up to max local maxima, ordered by ascending interval.
// A bin qualifies when it dominates its neighbourhood, exceeds twice the
// neighbour average and holds at least 0.1% of all samples.
func (h *Histogram) Peaks(max int) []Peak {
	var peaks []Peak
	floor := uint32(h.total / 1000)
	if floor == 0 {
		floor = 1
	}

	i := searchStart
	for i < len(h.bins) && len(peaks) < max {
		count := h.bins[i]
		if count < floor {
			i++
			continue
		}

		// Local maximum over the neighbourhood.
		isMax := true
		var neighborSum uint32
		neighbors := 0
		for j := i - neighborWindow; j <= i+neighborWindow; j++ {
			if j < 0 || j >= len(h.bins) || j == i {
				continue
			}
			if h.bins[j] > count {
				isMax = false
				break
			}
			neighborSum += h.bins[j]
			neighbors++
		}
		if !isMax {
			i++
			continue
		}
		if neighbors > 0 && count*uint32(neighbors) <= 2*neighborSum {
			i++
			continue
		}

		// Band population: everything within the neighbourhood.
		var band uint32
		for j := i - neighborWindow; j <= i+neighborWindow; j++ {
			if j >= 0 && j < len(h.bins) {
				band += h.bins[j]
			}
		}
		peaks = append(peaks, Peak{
			Ticks:      uint64(i),
			Count:      count,
			Population: float64(band) / float64(h.total),
		})

		// Skip past this band so one wide peak is not counted twice.
		i += neighborWindow + 1
	}
	return peaks
}

// Result is a classification outcome.
type Result struct {
	Encoding   Encoding
	CellNs     uint64  // nominal bit-cell period
	Confidence float64 // combined population of the matched peaks
}

// Detect classifies a histogram captured at the given sample clock.
// Peak positions are converted to nanoseconds before the ratio tests, so
// the thresholds hold at any tick rate.
func Detect(h *Histogram, clockHz uint64) Result {
	if h.Total() < minSamples {
		return Result{Encoding: Unknown}
	}
	peaks := h.Peaks(3)
	if len(peaks) < 2 {
		return Result{Encoding: Unknown}
	}

	toNs := func(ticks uint64) float64 {
		if clockHz == 0 {
			return float64(ticks)
		}
		return float64(ticks) * 1e9 / float64(clockHz)
	}

	first := toNs(peaks[0].Ticks)
	second := toNs(peaks[1].Ticks)
	if first <= 0 {
		return Result{Encoding: Unknown}
	}

	// The base band must carry real mass and dominate its competitors.
	if peaks[0].Population < 0.02 {
		return Result{Encoding: Unknown}
	}
	for _, p := range peaks[1:] {
		if p.Count > peaks[0].Count {
			return Result{Encoding: Unknown}
		}
	}

	cellNs := uint64(first + 0.5)

	// Three peaks with the outer one at triple the base period is the GCR
	// signature; check it before the two-peak ratios.
	if len(peaks) == 3 {
		third := toNs(peaks[2].Ticks)
		ratio := third / first
		if ratio >= 2.8 && ratio <= 3.2 {
			conf := peaks[0].Population + peaks[1].Population + peaks[2].Population
			return Result{Encoding: GCR, CellNs: cellNs, Confidence: conf}
		}
	}

	ratio := second / first
	conf := peaks[0].Population + peaks[1].Population
	switch {
	case ratio >= 1.4 && ratio <= 1.6:
		return Result{Encoding: FM, CellNs: cellNs, Confidence: conf}
	case ratio >= 1.9 && ratio <= 2.1:
		return Result{Encoding: MFM, CellNs: cellNs, Confidence: conf}
	}
	return Result{Encoding: Unknown}
}

// DetectIntervals is a convenience wrapper building the histogram first.
func DetectIntervals(intervals []uint64, clockHz uint64) Result {
	return Detect(BuildHistogram(intervals), clockHz)
}

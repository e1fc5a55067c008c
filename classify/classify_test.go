package classify

import (
	"math/rand"
	"testing"
)

// Helper: syntheticIntervals builds an interval population with the given
// (ticks, count) bands, mildly spread so the histogram looks like real
// flux rather than a delta comb. Fixed seed for reproducibility.
func syntheticIntervals(bands []struct {
	ticks uint64
	count int
}) []uint64 {
	rng := rand.New(rand.NewSource(42))
	var intervals []uint64
	for _, b := range bands {
		for i := 0; i < b.count; i++ {
			spread := uint64(rng.Intn(3)) // 0..2 ticks of read jitter
			intervals = append(intervals, b.ticks+spread)
		}
	}
	rng.Shuffle(len(intervals), func(i, j int) {
		intervals[i], intervals[j] = intervals[j], intervals[i]
	})
	return intervals
}

func TestDetect_MFMFromDoubleRatio(t *testing.T) {
	intervals := syntheticIntervals([]struct {
		ticks uint64
		count int
	}{
		{2000, 800}, // base cell
		{4000, 150}, // double cell
	})

	result := DetectIntervals(intervals, 1e9)
	if result.Encoding != MFM {
		t.Fatalf("got %v, expected MFM", result.Encoding)
	}
	if result.CellNs < 1995 || result.CellNs > 2005 {
		t.Errorf("got cell %d ns, expected about 2000", result.CellNs)
	}
	if result.Confidence < 0.5 {
		t.Errorf("confidence %0.2f unexpectedly low", result.Confidence)
	}
}

func TestDetect_FMFromSesquiRatio(t *testing.T) {
	intervals := syntheticIntervals([]struct {
		ticks uint64
		count int
	}{
		{2000, 600},
		{3000, 300},
	})

	result := DetectIntervals(intervals, 1e9)
	if result.Encoding != FM {
		t.Fatalf("got %v, expected FM", result.Encoding)
	}
}

func TestDetect_GCRFromTriplePeak(t *testing.T) {
	intervals := syntheticIntervals([]struct {
		ticks uint64
		count int
	}{
		{2000, 500},
		{4000, 250},
		{6000, 120},
	})

	result := DetectIntervals(intervals, 1e9)
	if result.Encoding != GCR {
		t.Fatalf("got %v, expected GCR", result.Encoding)
	}
	if result.CellNs < 1995 || result.CellNs > 2005 {
		t.Errorf("got cell %d ns, expected about 2000", result.CellNs)
	}
}

func TestDetect_ClockNormalization(t *testing.T) {
	// Same disk captured at a 250 MHz tick clock: a 2000 ns cell is 500
	// ticks. Classification must not depend on the tick rate.
	intervals := syntheticIntervals([]struct {
		ticks uint64
		count int
	}{
		{500, 800},
		{1000, 150},
	})

	result := DetectIntervals(intervals, 250e6)
	if result.Encoding != MFM {
		t.Fatalf("got %v, expected MFM", result.Encoding)
	}
	if result.CellNs < 1990 || result.CellNs > 2010 {
		t.Errorf("got cell %d ns, expected about 2000", result.CellNs)
	}
}

func TestDetect_TooFewSamples(t *testing.T) {
	intervals := syntheticIntervals([]struct {
		ticks uint64
		count int
	}{
		{2000, 40},
		{4000, 10},
	})

	result := DetectIntervals(intervals, 1e9)
	if result.Encoding != Unknown {
		t.Fatalf("got %v, expected Unknown for %d samples", result.Encoding, len(intervals))
	}
}

func TestDetect_SinglePeakIsUnknown(t *testing.T) {
	intervals := syntheticIntervals([]struct {
		ticks uint64
		count int
	}{
		{2000, 1000},
	})

	result := DetectIntervals(intervals, 1e9)
	if result.Encoding != Unknown {
		t.Fatalf("got %v, expected Unknown for single-peak histogram", result.Encoding)
	}
}

func TestDetect_OffRatioIsUnknown(t *testing.T) {
	// Peaks at an unphysical 1.25 ratio match no known encoding.
	intervals := syntheticIntervals([]struct {
		ticks uint64
		count int
	}{
		{2000, 700},
		{2500, 300},
	})

	result := DetectIntervals(intervals, 1e9)
	if result.Encoding != Unknown {
		t.Fatalf("got %v, expected Unknown", result.Encoding)
	}
}

func TestPeaks_OrderedAndBounded(t *testing.T) {
	intervals := syntheticIntervals([]struct {
		ticks uint64
		count int
	}{
		{2000, 500},
		{3000, 300},
		{4000, 200},
		{5000, 100},
	})

	peaks := BuildHistogram(intervals).Peaks(3)
	if len(peaks) != 3 {
		t.Fatalf("got %d peaks, expected 3", len(peaks))
	}
	for i := 1; i < len(peaks); i++ {
		if peaks[i].Ticks <= peaks[i-1].Ticks {
			t.Errorf("peaks out of order: %d before %d", peaks[i-1].Ticks, peaks[i].Ticks)
		}
	}
}

// Package correct recovers sectors that fail their checksum by flipping
// candidate bits inside a suspect region. It is the last pass of the
// decode pipeline: weak regions from multi-revolution comparison mark
// where to search, and the sector checksum is the oracle.
package correct

import (
	"errors"
	"fmt"
)

const (
	// MaxRegionBits bounds the search region. Anything wider is noise,
	// not a correctable dropout, and is rejected before any work.
	MaxRegionBits = 100
	// MaxFlipsLimit caps simultaneous flips; the search budget grows as
	// a power of two of this value.
	MaxFlipsLimit = 12
	// DefaultMaxFlips is the depth used when Options leaves it zero.
	DefaultMaxFlips = 4
)

// ErrCancelled is returned when the progress callback stops the search.
var ErrCancelled = errors.New("correction cancelled")

// ErrExhausted is returned when the search ends without a verifying
// flip combination, either sweeping the region or hitting the
// multi-bit iteration budget.
var ErrExhausted = errors.New("correction search exhausted")

// VerifyFunc reports whether a candidate bitstream now checks out,
// typically by re-running the sector CRC over it.
type VerifyFunc func(bits []bool) bool

// ProgressFunc is called periodically with iterations done against the
// iteration limit (zero during the unbudgeted single-flip sweep).
// Returning false cancels the search.
type ProgressFunc func(done, total uint64) bool

// Options tunes a correction attempt.
type Options struct {
	MaxFlips int          // simultaneous flips to try, 1..MaxFlipsLimit
	Progress ProgressFunc // optional cancel hook
}

// Audit records what a successful correction changed.
type Audit struct {
	Positions  []int  // absolute bit positions flipped
	Iterations uint64 // verify calls spent
}

const progressStride = 64

// Region searches for a flip combination inside bits[start:start+length]
// that makes verify pass. Candidates are tried on a private copy; bits
// is only modified, in one pass, after verification succeeds.
func Region(bits []bool, start, length int, verify VerifyFunc, opts Options) (Audit, error) {
	if verify == nil {
		return Audit{}, fmt.Errorf("nil verify function")
	}
	if start < 0 || length <= 0 || start+length > len(bits) {
		return Audit{}, fmt.Errorf("region [%d, %d) out of range for %d bits", start, start+length, len(bits))
	}
	if length > MaxRegionBits {
		return Audit{}, fmt.Errorf("region of %d bits exceeds the %d bit limit", length, MaxRegionBits)
	}
	maxFlips := opts.MaxFlips
	if maxFlips == 0 {
		maxFlips = DefaultMaxFlips
	}
	if maxFlips < 1 || maxFlips > MaxFlipsLimit {
		return Audit{}, fmt.Errorf("max flips %d out of range 1..%d", maxFlips, MaxFlipsLimit)
	}

	scratch := make([]bool, len(bits))
	copy(scratch, bits)

	var iterations uint64

	// The single-flip sweep covers the whole region unconditionally;
	// only the multi-bit enumeration below is budgeted.
	positions, err := searchCombinations(scratch, start, length, 1, verify, opts.Progress, &iterations, 0)
	if err != nil {
		return Audit{Iterations: iterations}, err
	}
	if positions != nil {
		copy(bits, scratch)
		return Audit{Positions: positions, Iterations: iterations}, nil
	}

	limit := iterations + uint64(1)<<maxFlips
	for flips := 2; flips <= maxFlips; flips++ {
		positions, err := searchCombinations(scratch, start, length, flips, verify, opts.Progress, &iterations, limit)
		if err != nil {
			return Audit{Iterations: iterations}, err
		}
		if positions != nil {
			copy(bits, scratch)
			return Audit{Positions: positions, Iterations: iterations}, nil
		}
	}
	return Audit{Iterations: iterations}, ErrExhausted
}

// searchCombinations tries every way to flip exactly k bits inside the
// region, in lexicographic order. Returns the winning positions, or nil
// when this depth is exhausted. A limit of zero means unbounded;
// otherwise the search stops once the shared iteration counter reaches
// it.
func searchCombinations(scratch []bool, start, length, k int, verify VerifyFunc, progress ProgressFunc, iterations *uint64, limit uint64) ([]int, error) {
	if k > length {
		return nil, nil
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		for _, p := range idx {
			scratch[start+p] = !scratch[start+p]
		}
		*iterations++
		ok := verify(scratch)
		if ok {
			positions := make([]int, k)
			for i, p := range idx {
				positions[i] = start + p
			}
			return positions, nil
		}
		for _, p := range idx {
			scratch[start+p] = !scratch[start+p]
		}

		if limit > 0 && *iterations >= limit {
			return nil, ErrExhausted
		}
		if progress != nil && *iterations%progressStride == 0 {
			if !progress(*iterations, limit) {
				return nil, ErrCancelled
			}
		}

		// Advance to the next k-combination.
		i := k - 1
		for i >= 0 && idx[i] == length-k+i {
			i--
		}
		if i < 0 {
			return nil, nil
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// Regions applies Region to each suspect region in turn, accumulating
// the audits. A region that cannot be corrected is skipped; a cancel
// from the progress hook aborts the whole pass.
func Regions(bits []bool, regions [][2]int, verify VerifyFunc, opts Options) ([]Audit, error) {
	var audits []Audit
	for _, r := range regions {
		audit, err := Region(bits, r[0], r[1], verify, opts)
		switch {
		case err == nil:
			audits = append(audits, audit)
		case errors.Is(err, ErrCancelled):
			return audits, err
		}
	}
	return audits, nil
}

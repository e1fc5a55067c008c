package consensus

import "fmt"

// BitDisagreement marks a bit position where decoded revolutions split.
type BitDisagreement struct {
	Pos int
	A   bool
	B   bool
}

// CompareBits diffs two decoded bitstreams position by position up to
// the shorter length. It is a cheap post-PLL cross-check next to the
// interval-domain Compare.
func CompareBits(a, b []bool) []BitDisagreement {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var out []BitDisagreement
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			out = append(out, BitDisagreement{Pos: i, A: a[i], B: b[i]})
		}
	}
	return out
}

// FuseBits majority-votes each bit position across three or more
// decoded revolutions. The returned weak mask is true wherever the vote
// was split. Ties resolve to zero, matching how an AC-erased weak cell
// most often samples.
func FuseBits(revs [][]bool) (bits []bool, weak []bool, err error) {
	if len(revs) < 3 {
		return nil, nil, fmt.Errorf("need at least 3 revolutions to vote, have %d", len(revs))
	}
	n := len(revs[0])
	for _, r := range revs[1:] {
		if len(r) < n {
			n = len(r)
		}
	}
	bits = make([]bool, n)
	weak = make([]bool, n)
	for i := 0; i < n; i++ {
		ones := 0
		for _, r := range revs {
			if r[i] {
				ones++
			}
		}
		zeros := len(revs) - ones
		bits[i] = ones > zeros
		weak[i] = ones > 0 && zeros > 0
	}
	return bits, weak, nil
}

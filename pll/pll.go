// Package pll recovers bit-cell timing from jittery flux intervals using a
// pump-charge phase-locked loop. Arithmetic runs on integer ticks scaled by
// 16 so sub-tick corrections survive rounding.
package pll

import (
	"fmt"

	"github.com/sergev/fluxkit/flux"
)

const (
	// tickScale is the fixed-point multiplier applied to raw ticks.
	tickScale = 16
	// DefaultWindowPercent is the +/- pump-charge clamp range around nominal.
	DefaultWindowPercent = 10
	// DefaultFastGain damps pulses arriving late (error >= 0).
	DefaultFastGain = 1.0 / 7
	// DefaultSlowGain damps pulses arriving early, slightly weaker so the
	// loop does not oscillate on encodings that mix short and long cells.
	DefaultSlowGain = 1.0 / 8

	// phaseShiftDiv is the fraction of the phase error fed back into the
	// window position each pulse.
	phaseShiftDiv = 16

	// Phase accumulator rescale bounds for unbounded-length tracks.
	overflowLimit = 512 * 1024 * 1014
	overflowStep  = 256 * 1024 * 1014
)

// Rejection selects inter-band snapping for encodings whose legal cell
// counts form a small fixed set.
type Rejection int

const (
	RejectNone Rejection = iota // adaptive loop only
	RejectGCR                   // legal counts {2,3,4,5,6}
	RejectFM                    // legal counts {2,4}
)

// Options configures one track-decode pass. The zero value is not usable;
// CellNs and ClockHz are required.
type Options struct {
	CellNs        uint64    // nominal bit-cell period in nanoseconds
	ClockHz       uint64    // sample clock the flux ticks were measured at
	WindowPercent int       // pump clamp range, percent of nominal (default 10)
	FastGain      float64   // correction gain for late pulses (default 1/7)
	SlowGain      float64   // correction gain for early pulses (default 1/8)
	Rejection     Rejection // inter-band snapping policy
	Bands         *BandTable // non-nil bypasses the adaptive loop entirely
	Track         int       // track number, used for band-zone lookup
}

// Cell is the decode result for one flux interval: the number of bit cells
// the interval spanned, or a bad-pulse flag when the pulse arrived before
// the current window.
type Cell struct {
	Count int
	Bad   bool
}

// Stats accumulates pulse bookkeeping for one decode pass.
type Stats struct {
	Pulses int // intervals consumed
	Bad    int // pulses before the window start, dropped
	Early  int // pulses ahead of window center by more than 1/8 cell
	Late   int // pulses behind window center by more than 1/8 cell
}

// LockQuality returns the percentage of pulses that landed near the
// window center, a rough measure of how well the loop tracked the media.
func (s Stats) LockQuality() float64 {
	if s.Pulses == 0 {
		return 0
	}
	valid := s.Pulses - s.Bad - s.Early - s.Late
	return float64(valid) * 100 / float64(s.Pulses)
}

// Decoder tracks the PLL state for one revolution. Create a fresh Decoder
// per track-decode call; it holds no cross-track state.
type Decoder struct {
	opts Options

	pump           int64 // current cell estimate, scaled ticks
	pumpMin        int64
	pumpMax        int64
	phase          int64 // window start, scaled ticks
	lastPulsePhase int64 // absolute position of the previous pulse

	bands *bandZone

	stats Stats
}

// NewDecoder validates the options and prepares a locked-at-nominal loop.
func NewDecoder(opts Options) (*Decoder, error) {
	if opts.CellNs == 0 {
		return nil, fmt.Errorf("nominal cell period not set")
	}
	if opts.ClockHz == 0 {
		return nil, fmt.Errorf("sample clock not set")
	}
	if opts.WindowPercent == 0 {
		opts.WindowPercent = DefaultWindowPercent
	}
	if opts.WindowPercent < 1 || opts.WindowPercent > 50 {
		return nil, fmt.Errorf("window percent %d out of range 1..50", opts.WindowPercent)
	}
	if opts.FastGain == 0 {
		opts.FastGain = DefaultFastGain
	}
	if opts.SlowGain == 0 {
		opts.SlowGain = DefaultSlowGain
	}
	if opts.FastGain < 0.01 || opts.FastGain > 2.0 {
		return nil, fmt.Errorf("fast gain %g out of range 0.01..2.0", opts.FastGain)
	}
	if opts.SlowGain < 0.01 || opts.SlowGain > 2.0 {
		return nil, fmt.Errorf("slow gain %g out of range 0.01..2.0", opts.SlowGain)
	}

	nominalTicks := int64(opts.CellNs * opts.ClockHz / 1e9)
	if nominalTicks <= 0 {
		return nil, fmt.Errorf("cell period %d ns is below one tick at %d Hz", opts.CellNs, opts.ClockHz)
	}

	d := &Decoder{opts: opts}
	d.pump = nominalTicks * tickScale
	d.pumpMin = d.pump - d.pump*int64(opts.WindowPercent)/100
	d.pumpMax = d.pump + d.pump*int64(opts.WindowPercent)/100

	// Start locked: the window is placed so a pulse arriving exactly one
	// nominal period after the index lands on the window center.
	d.phase = d.pump / 2
	d.lastPulsePhase = 0

	if opts.Bands != nil {
		d.bands = opts.Bands.zoneFor(opts.Track)
		if d.bands == nil {
			return nil, fmt.Errorf("no band zone covers track %d", opts.Track)
		}
	}
	return d, nil
}

// Stats returns the pulse bookkeeping accumulated so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// CellNs returns the current cell-period estimate in nanoseconds.
func (d *Decoder) CellNs() uint64 {
	ticks := uint64(d.pump / tickScale)
	return ticks * 1e9 / d.opts.ClockHz
}

// NextCell consumes one interval from the source and returns its cell
// timing. The second return value is false once the source is exhausted.
func (d *Decoder) NextCell(source flux.Source) (Cell, bool) {
	interval := source.Next()
	if interval == 0 {
		return Cell{}, false
	}
	d.stats.Pulses++

	if d.bands != nil {
		return d.bandCell(interval), true
	}
	return d.adaptiveCell(int64(interval) * tickScale), true
}

// adaptiveCell runs the pump-charge feedback loop for one pulse.
func (d *Decoder) adaptiveCell(pulse int64) Cell {
	// Rescale the accumulators before they can overflow on long tracks.
	if d.phase > overflowLimit {
		d.phase -= overflowStep
		d.lastPulsePhase -= overflowStep
	}

	pos := d.lastPulsePhase + pulse

	// A pulse before the window start came earlier than physically
	// possible for this cell. Drop it without touching the window.
	if pos < d.phase {
		d.lastPulsePhase = pos
		d.stats.Bad++
		return Cell{Bad: true}
	}

	// Walk whole windows until the pulse falls inside one.
	count := 1
	for pos > d.phase+d.pump {
		d.phase += d.pump
		count++
	}

	rightBoundary := d.phase + d.pump
	count = d.reject(count, rightBoundary, pos)

	center := d.phase + d.pump/2
	err := pos - center

	// Asymmetric proportional correction, then clamp to the window.
	if err >= 0 {
		d.pump += int64(float64(err) * d.opts.FastGain)
	} else {
		d.pump += int64(float64(err) * d.opts.SlowGain)
	}
	if d.pump < d.pumpMin {
		d.pump = d.pumpMin
	}
	if d.pump > d.pumpMax {
		d.pump = d.pumpMax
	}

	if err > d.pump/8 {
		d.stats.Late++
	} else if err < -d.pump/8 {
		d.stats.Early++
	}

	// Nudge the window toward the pulse and advance past the consumed cell.
	d.phase += err / phaseShiftDiv
	d.phase += d.pump
	d.lastPulsePhase = pos

	return Cell{Count: count}
}

// reject snaps ambiguous boundary counts to the nearer legal value for
// encodings with a fixed legal-count set. The side of the window center
// the pulse landed on decides the direction.
func (d *Decoder) reject(count int, rightBoundary, pos int64) int {
	nearLeft := rightBoundary-pos > d.pump/2

	switch d.opts.Rejection {
	case RejectGCR:
		if count == 3 {
			if nearLeft {
				count = 2
			} else {
				count = 4
			}
		}
		if count == 5 {
			if nearLeft {
				count = 4
			} else {
				count = 6
			}
		}
	case RejectFM:
		if count == 1 {
			count = 2
		}
		if count == 3 {
			if nearLeft {
				count = 2
			} else {
				count = 4
			}
		}
		if count > 4 {
			count = 4
		}
	}
	return count
}

// AppendBits appends one cell's bit pattern to bits: count-1 zeros followed
// by a one. Bad cells contribute nothing.
func AppendBits(bits []bool, c Cell) []bool {
	if c.Bad || c.Count <= 0 {
		return bits
	}
	for i := 1; i < c.Count; i++ {
		bits = append(bits, false)
	}
	return append(bits, true)
}

// DecodeCells drains the source and returns one Cell per interval.
func (d *Decoder) DecodeCells(source flux.Source) []Cell {
	var cells []Cell
	for {
		c, ok := d.NextCell(source)
		if !ok {
			return cells
		}
		cells = append(cells, c)
	}
}

// DecodeBits drains the source and returns the decoded bitstream.
func (d *Decoder) DecodeBits(source flux.Source) []bool {
	var bits []bool
	for {
		c, ok := d.NextCell(source)
		if !ok {
			return bits
		}
		bits = AppendBits(bits, c)
	}
}

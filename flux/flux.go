// Package flux holds the raw flux-timing model shared by the decoding
// pipeline: revolutions of transition timestamps, interval iteration and
// tick/time conversion.
package flux

// Revolution is one rotation of flux data, bounded by index pulses.
// Transitions are timestamps in sample-clock ticks, monotonically
// increasing, relative to this revolution's own index pulse.
// The slice is borrowed from the capture layer and never mutated here.
type Revolution struct {
	Transitions []uint64 // Transition timestamps in ticks since index
	IndexTicks  uint64   // Duration of the revolution in ticks (0 if unknown)
	ClockHz     uint64   // Sample clock frequency the ticks were measured at
}

// Intervals returns the time between successive transitions in ticks.
// The first interval is measured from the index pulse (time zero).
func (r *Revolution) Intervals() []uint64 {
	intervals := make([]uint64, len(r.Transitions))
	last := uint64(0)
	for i, t := range r.Transitions {
		intervals[i] = t - last
		last = t
	}
	return intervals
}

// TicksToNs converts a tick count to nanoseconds at this revolution's clock.
func (r *Revolution) TicksToNs(ticks uint64) uint64 {
	if r.ClockHz == 0 {
		return ticks
	}
	return ticks * 1e9 / r.ClockHz
}

// NsToTicks converts nanoseconds to ticks at this revolution's clock.
func (r *Revolution) NsToTicks(ns uint64) uint64 {
	if r.ClockHz == 0 {
		return ns
	}
	return ns * r.ClockHz / 1e9
}

// Source provides flux intervals one at a time.
// Different front ends can implement this interface to feed the PLL
// in their own format.
type Source interface {
	// Next returns the next flux interval in ticks (time until the next
	// transition). Returns 0 when no more transitions are available.
	Next() uint64
}

// SliceSource iterates flux intervals over absolute transition times.
// It implements the Source interface.
type SliceSource struct {
	transitions []uint64
	index       int
	lastTime    uint64
}

// NewSliceSource creates a SliceSource from transition timestamps.
func NewSliceSource(transitions []uint64) *SliceSource {
	return &SliceSource{transitions: transitions}
}

// Next returns the next flux interval in ticks.
// Returns 0 if no more transitions are available.
func (s *SliceSource) Next() uint64 {
	if s.index >= len(s.transitions) {
		return 0
	}
	next := s.transitions[s.index]
	interval := next - s.lastTime
	s.lastTime = next
	s.index++
	return interval
}

// Done reports whether all transitions have been consumed.
func (s *SliceSource) Done() bool {
	return s.index >= len(s.transitions)
}

package flux

import (
	"fmt"
	"math/rand"
)

// GenerateTransitions converts a decoded bit pattern back into flux
// transition times. Each 1-bit produces a transition at the end of its
// cell; 0-bits only advance time. Times are in nanoseconds relative to
// the start of the track.
func GenerateTransitions(bits []bool, cellNs uint64) ([]uint64, error) {
	if len(bits) == 0 {
		return nil, fmt.Errorf("empty bit pattern")
	}
	if cellNs == 0 {
		return nil, fmt.Errorf("zero cell period")
	}

	var transitions []uint64
	currentTime := uint64(0)
	for _, bit := range bits {
		currentTime += cellNs
		if bit {
			transitions = append(transitions, currentTime)
		}
	}
	return transitions, nil
}

// CoverRotation extends a transition array to span a full rotation.
// Filler transitions are appended at 2-cell intervals until the rotation
// duration (60e9/rpm nanoseconds) is reached.
func CoverRotation(transitions []uint64, cellNs uint64, rpm uint16) []uint64 {
	if rpm == 0 || cellNs == 0 {
		return transitions
	}
	rotationNs := uint64(60e9 / float64(rpm))
	step := 2 * cellNs

	currentTime := uint64(0)
	if len(transitions) > 0 {
		currentTime = transitions[len(transitions)-1]
	}
	for currentTime+step <= rotationNs {
		currentTime += step
		transitions = append(transitions, currentTime)
	}
	return transitions
}

// Jitter adds random variation to transition times to simulate real
// media. Each transition moves by up to maxFraction of the cell period
// in either direction; ordering is preserved. The caller supplies the
// random source so tests stay reproducible.
func Jitter(transitions []uint64, cellNs uint64, maxFraction float64, rng *rand.Rand) []uint64 {
	maxShift := float64(cellNs) * maxFraction

	jittered := make([]uint64, len(transitions))
	copy(jittered, transitions)

	previous := uint64(0)
	for i := range jittered {
		shift := (rng.Float64()*2 - 1) * maxShift
		moved := float64(jittered[i]) + shift
		if moved < float64(previous)+1 {
			moved = float64(previous) + 1
		}
		jittered[i] = uint64(moved)
		previous = jittered[i]
	}
	return jittered
}

// Package quality scores decoded tracks so a caller can decide where to
// spend extra read passes. Scores roll up per-track signals (lock
// quality, checksum failures, weak bits, spindle speed) into a small
// ordinal risk scale.
package quality

import "fmt"

// Risk is the per-track risk level derived from the score.
type Risk int

const (
	RiskNone Risk = iota
	RiskLow
	RiskMedium
	RiskHigh
)

func (r Risk) String() string {
	switch r {
	case RiskNone:
		return "none"
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return fmt.Sprintf("Risk(%d)", int(r))
	}
}

// Confidence grades how trustworthy the recovered data is.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

const (
	lockQualityFloor  = 60.0 // percent; below this the PLL struggled
	rpmDeviationLimit = 0.02 // fraction of nominal spindle speed
)

// TrackReport collects the decode signals for one track side.
type TrackReport struct {
	Track int
	Side  int

	SectorsGood    int
	SectorsBad     int // read but failed checksum
	SectorsMissing int // expected but never found

	LockQuality  float64 // PLL in-window percentage, 0..100
	CRCErrors    int
	Protected    bool
	WeakRegions  int
	RPMDeviation float64 // measured vs nominal, as a fraction
}

// RiskScore weighs the track's trouble signals. Poor PLL lock and
// protection weigh double since they tend to corrupt whole tracks
// rather than single sectors.
func (r *TrackReport) RiskScore() int {
	score := 0
	if r.LockQuality < lockQualityFloor {
		score += 2
	}
	if r.CRCErrors > 0 {
		score++
	}
	if r.Protected {
		score += 2
	}
	if r.WeakRegions > 0 {
		score++
	}
	if r.RPMDeviation > rpmDeviationLimit || r.RPMDeviation < -rpmDeviationLimit {
		score++
	}
	return score
}

// RiskLevel buckets a score into the four risk levels.
func RiskLevel(score int) Risk {
	switch {
	case score <= 0:
		return RiskNone
	case score <= 3:
		return RiskLow
	case score <= 6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Risk is shorthand for RiskLevel(r.RiskScore()).
func (r *TrackReport) Risk() Risk {
	return RiskLevel(r.RiskScore())
}

// RecoveryConfidence grades the sector tally. Everything read clean is
// high; a majority clean is medium; anything worse is low.
func (r *TrackReport) RecoveryConfidence() Confidence {
	switch {
	case r.SectorsGood > 0 && r.SectorsBad == 0 && r.SectorsMissing == 0:
		return ConfidenceHigh
	case r.SectorsGood > r.SectorsBad+r.SectorsMissing:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

const maxRetryPasses = 10

// RetryPasses recommends how many extra read passes a track deserves.
// The count grows with the track's error and weak-sector tallies, with
// a bump for poor PLL lock and protection, capped at ten.
func (r *TrackReport) RetryPasses() int {
	passes := 1 + r.CRCErrors + r.SectorsMissing + r.WeakRegions
	if r.LockQuality < lockQualityFloor {
		passes += 2
	}
	if r.Protected {
		passes++
	}
	if passes > maxRetryPasses {
		passes = maxRetryPasses
	}
	return passes
}

// DiskReport accumulates track reports for a whole disk.
type DiskReport struct {
	Tracks         int
	SectorsGood    int
	SectorsBad     int
	SectorsMissing int
	WorstRisk      Risk
	HighRiskTracks []int
	Protected      bool
}

// Add folds one track into the disk tally.
func (d *DiskReport) Add(r *TrackReport) {
	d.Tracks++
	d.SectorsGood += r.SectorsGood
	d.SectorsBad += r.SectorsBad
	d.SectorsMissing += r.SectorsMissing
	d.Protected = d.Protected || r.Protected

	risk := r.Risk()
	if risk > d.WorstRisk {
		d.WorstRisk = risk
	}
	if risk == RiskHigh {
		d.HighRiskTracks = append(d.HighRiskTracks, r.Track)
	}
}

// Confidence grades the whole disk from its sector tally.
func (d *DiskReport) Confidence() Confidence {
	t := TrackReport{
		SectorsGood:    d.SectorsGood,
		SectorsBad:     d.SectorsBad,
		SectorsMissing: d.SectorsMissing,
	}
	return t.RecoveryConfidence()
}

package pll

// Band mode serves variable-speed drives that change the recording rate by
// cylinder zone. Instead of adaptive feedback, the cell count comes from a
// static threshold table selected once per track.

// BandBound maps an interval upper bound (raw ticks) to a cell count.
type BandBound struct {
	MaxTicks uint64
	Count    int
}

// bandZone is one cylinder zone's resolved threshold list.
type bandZone struct {
	startTrack int
	bounds     []BandBound
}

// BandTable holds per-zone thresholds, ordered by ascending start track.
// A zone covers tracks from its start up to the next zone's start.
type BandTable struct {
	zones []bandZone
}

// NewBandTable builds a table from (startTrack, bounds) rows. Rows must be
// ordered by ascending start track and each bounds list by ascending
// threshold.
func NewBandTable() *BandTable {
	return &BandTable{}
}

// AddZone appends one cylinder zone.
func (t *BandTable) AddZone(startTrack int, bounds ...BandBound) *BandTable {
	t.zones = append(t.zones, bandZone{startTrack: startTrack, bounds: bounds})
	return t
}

// zoneFor returns the zone covering the given track, or nil.
func (t *BandTable) zoneFor(track int) *bandZone {
	var found *bandZone
	for i := range t.zones {
		if t.zones[i].startTrack <= track {
			found = &t.zones[i]
		}
	}
	return found
}

// bandCell resolves one interval against the zone thresholds. Intervals
// beyond the last threshold have no legal cell count and are flagged bad.
func (d *Decoder) bandCell(interval uint64) Cell {
	for _, b := range d.bands.bounds {
		if interval <= b.MaxTicks {
			return Cell{Count: b.Count}
		}
	}
	d.stats.Bad++
	return Cell{Bad: true}
}

// Victor9000Bands returns the speed-zone table for Victor 9000 / Sirius 1
// drives, which vary the spindle speed across eight cylinder zones.
// Thresholds are in ticks at the 250 MHz capture clock divided by 16.
func Victor9000Bands() *BandTable {
	t := NewBandTable()
	t.AddZone(0, BandBound{2142, 1}, BandBound{3600, 3}, BandBound{5200, 5})
	t.AddZone(4, BandBound{2492, 1}, BandBound{3800, 3}, BandBound{5312, 5})
	t.AddZone(16, BandBound{2550, 1}, BandBound{3966, 3}, BandBound{5552, 5})
	t.AddZone(27, BandBound{2723, 1}, BandBound{4225, 3}, BandBound{5852, 5})
	t.AddZone(38, BandBound{2950, 1}, BandBound{4500, 3}, BandBound{6450, 5})
	t.AddZone(48, BandBound{3150, 1}, BandBound{4836, 3}, BandBound{6800, 5})
	t.AddZone(60, BandBound{3400, 1}, BandBound{5250, 3}, BandBound{7500, 5})
	t.AddZone(71, BandBound{3800, 1}, BandBound{5600, 3}, BandBound{8000, 5})
	return t
}

package consensus

import "bytes"

// Scheme names a recognized copy protection family.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeSafeDisc
	SchemeVMax
	SchemeRapidLok
	SchemeSuperCard
	SchemeMaverick
)

func (s Scheme) String() string {
	switch s {
	case SchemeSafeDisc:
		return "SafeDisc"
	case SchemeVMax:
		return "V-MAX"
	case SchemeRapidLok:
		return "RapidLok"
	case SchemeSuperCard:
		return "SuperCard"
	case SchemeMaverick:
		return "Maverick"
	default:
		return "none"
	}
}

var signatures = []struct {
	scheme   Scheme
	patterns [][]byte
}{
	{SchemeSafeDisc, [][]byte{[]byte("SafeDisc"), []byte("SAFEDISC"), []byte("C-DILLA")}},
	{SchemeVMax, [][]byte{[]byte("VMAX"), []byte("V-MAX")}},
	{SchemeRapidLok, [][]byte{[]byte("RAPIDLOK"), []byte("RAPID LOK")}},
	{SchemeSuperCard, [][]byte{[]byte("SUPERCHIP")}},
	{SchemeMaverick, [][]byte{[]byte("MAVERICK"), []byte("NIBTOOLS")}},
}

// ScanSignatures looks for known protection scheme markers in decoded
// sector data. Weak bits alone are ambiguous (damage looks the same);
// a marker plus weak regions is a strong protection signal.
func ScanSignatures(data []byte) Scheme {
	for _, sig := range signatures {
		for _, p := range sig.patterns {
			if bytes.Contains(data, p) {
				return sig.scheme
			}
		}
	}
	return SchemeNone
}

// Assessment combines weak-bit evidence with signature scanning.
type Assessment struct {
	Scheme      Scheme
	WeakRegions int
	Protected   bool
}

// Assess decides whether a track looks protected. A recognized
// signature always counts; without one, a handful of weak regions is
// treated as media damage rather than protection, while many regions
// on an otherwise readable track tips the call the other way.
func Assess(scheme Scheme, regions []WeakRegion) Assessment {
	a := Assessment{Scheme: scheme, WeakRegions: len(regions)}
	if scheme != SchemeNone {
		a.Protected = true
		return a
	}
	a.Protected = len(regions) >= 8
	return a
}

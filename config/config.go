// Package config holds decoder parameter sets: validated ranges, named
// presets for common media conditions, and TOML profiles for site
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "embed"

	"github.com/BurntSushi/toml"
)

//go:embed fluxkit.toml
var defaultProfileData []byte

// Parameter range errors, distinguishable with errors.Is.
var (
	ErrGainRange          = errors.New("pll gain out of range 0.01..2.0")
	ErrSyncToleranceRange = errors.New("sync tolerance out of range 0.05..0.8")
	ErrDataRateRange      = errors.New("data rate out of range 100000..20000000 Hz")
	ErrMaxFlipsRange      = errors.New("max flips out of range 1..12")
	ErrMaxSectorsRange    = errors.New("max sectors out of range 1..256")
	ErrWeakThreshold      = errors.New("weak threshold out of range 0.05..0.95")
	ErrRevolutionsRange   = errors.New("revolutions out of range 1..16")
)

// Params is one complete decoder parameter set. Callers receive a copy
// and own it; nothing here is shared state.
type Params struct {
	Name string `toml:"name"`

	// PLL loop gains applied to the phase error, fast when the window
	// drifted late and slow when early.
	FastGain float64 `toml:"fast_gain"`
	SlowGain float64 `toml:"slow_gain"`

	// SyncTolerance is the accepted deviation when matching sync
	// patterns, as a fraction of a cell.
	SyncTolerance float64 `toml:"sync_tolerance"`

	// DataRateHz is the nominal bit cell rate.
	DataRateHz int `toml:"data_rate_hz"`

	// MaxFlips bounds the error corrector's search depth.
	MaxFlips int `toml:"max_flips"`

	// MaxSectors bounds sector emission per track.
	MaxSectors int `toml:"max_sectors"`

	// WeakThreshold is the interval disagreement, as a fraction of the
	// pair average, that marks a weak region during consensus.
	WeakThreshold float64 `toml:"weak_threshold"`

	// Revolutions is how many reads of the track feed the consensus
	// pass. RetryPasses caps additional reads of a troubled track.
	Revolutions int `toml:"revolutions"`
	RetryPasses int `toml:"retry_passes"`

	// Encoding hints the expected format: auto, mfm, fm, amiga, c64,
	// apple. Auto lets the classifier decide.
	Encoding string `toml:"encoding"`
}

// CellNs returns the nominal bit cell width for the configured rate.
func (p *Params) CellNs() float64 {
	return 1e9 / float64(p.DataRateHz)
}

// Validate checks every field range, reporting the first violation.
func (p *Params) Validate() error {
	if p.FastGain < 0.01 || p.FastGain > 2.0 {
		return fmt.Errorf("fast_gain %v: %w", p.FastGain, ErrGainRange)
	}
	if p.SlowGain < 0.01 || p.SlowGain > 2.0 {
		return fmt.Errorf("slow_gain %v: %w", p.SlowGain, ErrGainRange)
	}
	if p.SyncTolerance < 0.05 || p.SyncTolerance > 0.8 {
		return fmt.Errorf("sync_tolerance %v: %w", p.SyncTolerance, ErrSyncToleranceRange)
	}
	if p.DataRateHz < 100_000 || p.DataRateHz > 20_000_000 {
		return fmt.Errorf("data_rate_hz %d: %w", p.DataRateHz, ErrDataRateRange)
	}
	if p.MaxFlips < 1 || p.MaxFlips > 12 {
		return fmt.Errorf("max_flips %d: %w", p.MaxFlips, ErrMaxFlipsRange)
	}
	if p.MaxSectors < 1 || p.MaxSectors > 256 {
		return fmt.Errorf("max_sectors %d: %w", p.MaxSectors, ErrMaxSectorsRange)
	}
	if p.WeakThreshold < 0.05 || p.WeakThreshold > 0.95 {
		return fmt.Errorf("weak_threshold %v: %w", p.WeakThreshold, ErrWeakThreshold)
	}
	if p.Revolutions < 1 || p.Revolutions > 16 {
		return fmt.Errorf("revolutions %d: %w", p.Revolutions, ErrRevolutionsRange)
	}
	if p.RetryPasses < 1 || p.RetryPasses > 10 {
		return fmt.Errorf("retry_passes %d must be 1..10", p.RetryPasses)
	}
	switch p.Encoding {
	case "auto", "mfm", "fm", "amiga", "c64", "apple":
	default:
		return fmt.Errorf("unknown encoding %q", p.Encoding)
	}
	return nil
}

// Default is the balanced starting point the other presets derive from.
func Default() Params {
	return Params{
		Name:          "default",
		FastGain:      1.0 / 7,
		SlowGain:      1.0 / 8,
		SyncTolerance: 0.30,
		DataRateHz:    500_000,
		MaxFlips:      4,
		MaxSectors:    64,
		WeakThreshold: 0.30,
		Revolutions:   3,
		RetryPasses:   3,
		Encoding:      "auto",
	}
}

// Fast trades recovery depth for speed: one revolution, no multi-bit
// correction search.
func Fast() Params {
	p := Default()
	p.Name = "fast"
	p.MaxFlips = 1
	p.Revolutions = 1
	p.RetryPasses = 1
	return p
}

// Thorough reads extra revolutions and searches deeper before giving
// up on a sector.
func Thorough() Params {
	p := Default()
	p.Name = "thorough"
	p.MaxFlips = 8
	p.Revolutions = 5
	p.RetryPasses = 6
	return p
}

// Aggressive throws everything at badly degraded media.
func Aggressive() Params {
	p := Default()
	p.Name = "aggressive"
	p.SyncTolerance = 0.60
	p.WeakThreshold = 0.20
	p.MaxFlips = 12
	p.Revolutions = 8
	p.RetryPasses = 10
	return p
}

// Gentle keeps the loop stiff and the corrector shallow, for media
// where false corrections are worse than missing sectors.
func Gentle() Params {
	p := Default()
	p.Name = "gentle"
	p.SyncTolerance = 0.15
	p.MaxFlips = 2
	return p
}

// AmigaStandard targets a healthy double density Amiga disk.
func AmigaStandard() Params {
	p := Default()
	p.Name = "amiga-standard"
	p.Encoding = "amiga"
	return p
}

// AmigaDamaged deepens recovery for degraded Amiga disks.
func AmigaDamaged() Params {
	p := Thorough()
	p.Name = "amiga-damaged"
	p.Encoding = "amiga"
	return p
}

// PCStandard targets a healthy IBM format disk.
func PCStandard() Params {
	p := Default()
	p.Name = "pc-standard"
	p.Encoding = "mfm"
	return p
}

// PCDamaged deepens recovery for degraded IBM format disks.
func PCDamaged() Params {
	p := Thorough()
	p.Name = "pc-damaged"
	p.Encoding = "mfm"
	return p
}

var presets = map[string]func() Params{
	"default":        Default,
	"fast":           Fast,
	"thorough":       Thorough,
	"aggressive":     Aggressive,
	"gentle":         Gentle,
	"amiga-standard": AmigaStandard,
	"amiga-damaged":  AmigaDamaged,
	"pc-standard":    PCStandard,
	"pc-damaged":     PCDamaged,
}

// Preset returns the named preset.
func Preset(name string) (Params, error) {
	f, ok := presets[strings.ToLower(name)]
	if !ok {
		return Params{}, fmt.Errorf("unknown preset %q (have %s)", name, strings.Join(PresetNames(), ", "))
	}
	return f(), nil
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// profileFile is the TOML layout: a default profile name and an array
// of profiles, each starting from a preset and overriding fields.
type profileFile struct {
	Default string         `toml:"default"`
	Profile []profileEntry `toml:"profile"`
}

type profileEntry struct {
	Name   string `toml:"name"`
	Preset string `toml:"preset"`
	Params
}

// resolve layers an entry's explicit fields over its base preset.
func (e *profileEntry) resolve() (Params, error) {
	base := Default()
	if e.Preset != "" {
		var err error
		base, err = Preset(e.Preset)
		if err != nil {
			return Params{}, err
		}
	}
	if e.FastGain != 0 {
		base.FastGain = e.FastGain
	}
	if e.SlowGain != 0 {
		base.SlowGain = e.SlowGain
	}
	if e.SyncTolerance != 0 {
		base.SyncTolerance = e.SyncTolerance
	}
	if e.DataRateHz != 0 {
		base.DataRateHz = e.DataRateHz
	}
	if e.MaxFlips != 0 {
		base.MaxFlips = e.MaxFlips
	}
	if e.MaxSectors != 0 {
		base.MaxSectors = e.MaxSectors
	}
	if e.WeakThreshold != 0 {
		base.WeakThreshold = e.WeakThreshold
	}
	if e.Revolutions != 0 {
		base.Revolutions = e.Revolutions
	}
	if e.RetryPasses != 0 {
		base.RetryPasses = e.RetryPasses
	}
	if e.Encoding != "" {
		base.Encoding = e.Encoding
	}
	base.Name = e.Name
	if err := base.Validate(); err != nil {
		return Params{}, fmt.Errorf("profile %q: %w", e.Name, err)
	}
	return base, nil
}

// LoadProfile reads a profile file and returns the named profile, or
// the file's default profile when name is empty.
func LoadProfile(path, name string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("read profile file: %w", err)
	}
	return parseProfile(data, name)
}

// EmbeddedProfile returns a profile from the built-in profile file.
func EmbeddedProfile(name string) (Params, error) {
	return parseProfile(defaultProfileData, name)
}

func parseProfile(data []byte, name string) (Params, error) {
	var file profileFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return Params{}, fmt.Errorf("parse profile file: %w", err)
	}
	if name == "" {
		name = file.Default
	}
	if name == "" {
		return Params{}, errors.New("no profile named and no default set")
	}
	for i := range file.Profile {
		if file.Profile[i].Name == name {
			return file.Profile[i].resolve()
		}
	}
	return Params{}, fmt.Errorf("profile %q not found", name)
}

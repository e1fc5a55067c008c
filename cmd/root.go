package cmd

import (
	"github.com/sergev/fluxkit/config"
	"github.com/spf13/cobra"
)

var (
	flagPreset   string
	flagProfile  string
	flagClockHz  uint64
	flagEncoding string
)

var rootCmd = &cobra.Command{
	Use:   "fluxkit",
	Short: "Decode flux-level floppy disk captures into sectors",
	Long: "Fluxkit decodes raw flux captures of floppy disks: it classifies the\n" +
		"encoding, recovers the bitstream with a phase-locked loop, extracts\n" +
		"sectors, and reports weak bits, copy protection and media quality.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPreset, "preset", "", "parameter preset (see 'fluxkit presets')")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "TOML profile file, 'name' or 'file.toml:name'")
	rootCmd.PersistentFlags().Uint64Var(&flagClockHz, "clock", 1_000_000_000, "sample clock of the capture in Hz")
	rootCmd.PersistentFlags().StringVar(&flagEncoding, "encoding", "", "force encoding: mfm, fm, amiga, c64, apple")
}

// resolveParams builds the parameter set from the preset and profile
// flags, preset first, then profile, then individual overrides.
func resolveParams() (config.Params, error) {
	params := config.Default()
	var err error

	if flagPreset != "" {
		params, err = config.Preset(flagPreset)
		if err != nil {
			return config.Params{}, err
		}
	}
	if flagProfile != "" {
		path, name := splitProfileFlag(flagProfile)
		if path == "" {
			params, err = config.EmbeddedProfile(name)
		} else {
			params, err = config.LoadProfile(path, name)
		}
		if err != nil {
			return config.Params{}, err
		}
	}
	if flagEncoding != "" {
		params.Encoding = flagEncoding
	}
	if err := params.Validate(); err != nil {
		return config.Params{}, err
	}
	return params, nil
}

// splitProfileFlag splits "file.toml:name" into its parts. A bare value
// with no separator names a profile in the built-in file.
func splitProfileFlag(value string) (path, name string) {
	for i := len(value) - 1; i >= 0; i-- {
		if value[i] == ':' {
			return value[:i], value[i+1:]
		}
	}
	return "", value
}

// Execute runs the root command. Cobra has already printed the error
// by the time this returns; the caller only needs the exit status.
func Execute() error {
	return rootCmd.Execute()
}

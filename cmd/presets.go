package cmd

import (
	"fmt"

	"github.com/sergev/fluxkit/config"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in parameter presets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range config.PresetNames() {
			p, err := config.Preset(name)
			cobra.CheckErr(err)
			fmt.Printf("%-15s encoding %-5s  rate %7d Hz  revs %d  flips %2d  retries %2d\n",
				p.Name, p.Encoding, p.DataRateHz, p.Revolutions, p.MaxFlips, p.RetryPasses)
		}
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

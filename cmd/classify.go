package cmd

import (
	"fmt"

	"github.com/sergev/fluxkit/classify"
	"github.com/sergev/fluxkit/flux"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify FILE",
	Short: "Classify the encoding of a flux capture",
	Long: "Classify the encoding of a flux capture from its interval histogram\n" +
		"without decoding it.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		revs, err := flux.ReadIntervalsFile(args[0], flagClockHz)
		cobra.CheckErr(err)

		for i, rev := range revs {
			result := classify.DetectIntervals(rev.Intervals(), rev.ClockHz)
			if result.Encoding == classify.Unknown {
				fmt.Printf("revolution %d: unknown (%d samples)\n", i, len(rev.Transitions))
				continue
			}
			fmt.Printf("revolution %d: %s, cell %d ns, confidence %.0f%%\n",
				i, result.Encoding, result.CellNs, result.Confidence*100)
		}
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

package cmd

import (
	"fmt"

	"github.com/sergev/fluxkit/flux"
	"github.com/sergev/fluxkit/track"
	"github.com/spf13/cobra"
)

var (
	flagTrack           int
	flagSide            int
	flagRPM             float64
	flagExpectedSectors int
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE",
	Short: "Decode a flux capture into sectors",
	Long: "Decode a flux capture into sectors. FILE holds flux intervals in\n" +
		"ticks, one per line, with a blank line between revolutions.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		params, err := resolveParams()
		cobra.CheckErr(err)

		revs, err := flux.ReadIntervalsFile(args[0], flagClockHz)
		cobra.CheckErr(err)

		result, err := track.Decode(revs, track.Options{
			Params:          params,
			Track:           flagTrack,
			Side:            flagSide,
			NominalRPM:      flagRPM,
			ExpectedSectors: flagExpectedSectors,
		})
		cobra.CheckErr(err)

		fmt.Printf("encoding: %s (%s), cell %d ns, %d revolutions\n",
			result.Encoding, result.Variant, result.CellNs, len(revs))

		for _, rec := range result.Sectors {
			status := "ok"
			switch {
			case !rec.HeaderOK:
				status = "BAD HEADER"
			case !rec.DataOK:
				status = "BAD DATA"
			case rec.Deleted:
				status = "deleted"
			}
			fmt.Printf("  track %2d side %d sector %2d  %4d bytes  %s\n",
				rec.Track, rec.Side, rec.Sector, len(rec.Data), status)
		}
		if result.Truncated {
			fmt.Println("  (sector limit reached, output truncated)")
		}

		report := result.Report
		fmt.Printf("sectors: %d good, %d bad, %d missing\n",
			report.SectorsGood, report.SectorsBad, report.SectorsMissing)
		fmt.Printf("lock quality: %.1f%%\n", report.LockQuality)
		if len(result.Weak) > 0 {
			fmt.Printf("weak regions: %d\n", len(result.Weak))
		}
		if len(result.Corrections) > 0 {
			for _, audit := range result.Corrections {
				fmt.Printf("corrected %d bit(s) in %d tries\n", len(audit.Positions), audit.Iterations)
			}
		}
		if result.Protection.Protected {
			fmt.Printf("protection: %s\n", result.Protection.Scheme)
		}
		fmt.Printf("risk: %s, confidence: %s\n", report.Risk(), report.RecoveryConfidence())
		if passes := report.RetryPasses(); passes > 1 {
			fmt.Printf("recommended retry passes: %d\n", passes)
		}
	},
}

func init() {
	decodeCmd.Flags().IntVar(&flagTrack, "track", 0, "physical track number of the capture")
	decodeCmd.Flags().IntVar(&flagSide, "side", 0, "disk side of the capture")
	decodeCmd.Flags().Float64Var(&flagRPM, "rpm", 300, "nominal spindle speed")
	decodeCmd.Flags().IntVar(&flagExpectedSectors, "sectors", 0, "expected sector count, for missing-sector reporting")
	rootCmd.AddCommand(decodeCmd)
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tideAll bool

var tideCmd = &cobra.Command{
	Use:   "tide",
	Short: "Print the next predicted tide",
	Long:  "Query NOAA for the configured station and print the next high or low tide.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newTideClient(cfg)
		now := time.Now()
		out := cmd.OutOrStdout()

		if tideAll {
			predictions, err := client.Predictions(cmd.Context(), now)
			if err != nil {
				return err
			}
			for _, p := range predictions {
				fmt.Fprintf(out, "%-4s  %s  %6.2f ft\n", p.Kind, p.Time.Local().Format("Mon 02 Jan 15:04"), p.Height)
			}
			return nil
		}

		p, err := client.NextTide(cmd.Context(), now)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Station %s: next tide %s at %s (in %s), %.2f ft\n",
			cfg.Tides.Station, p.Kind, p.Time.Local().Format("15:04 MST"),
			p.Time.Sub(now).Round(time.Minute), p.Height)
		return nil
	},
}

func init() {
	tideCmd.Flags().BoolVarP(&tideAll, "all", "a", false, "list every prediction in the 48 hour window")
	rootCmd.AddCommand(tideCmd)
}

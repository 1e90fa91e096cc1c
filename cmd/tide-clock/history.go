package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recently acquired tide targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit < 1 {
			return fmt.Errorf("--limit must be at least 1")
		}

		st, err := openStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.RecentTides(historyLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}

		if len(records) == 0 {
			fmt.Fprintln(out, "no tides recorded")
			return nil
		}
		for _, r := range records {
			flag := ""
			if r.MissedCycle {
				flag = "  missed cycle"
			}
			fmt.Fprintf(out, "%s  %-4s at %s  quick steps %d%s\n",
				r.AcquiredAt.Local().Format("2006-01-02 15:04"), r.Kind,
				r.Time.Local().Format("2006-01-02 15:04"), r.QuickSteps, flag)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of targets to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(historyCmd)
}

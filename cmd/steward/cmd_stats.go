package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show guarded-operation statistics",
	Long: `Every guarded command (commit, ask, scan, reload) records its
outcome and duration. This shows the aggregates: totals, success rate,
per-operation breakdown, and daily activity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		overview, err := a.collector.Overview()
		if err != nil {
			return err
		}
		if overview.Total == 0 {
			fmt.Println(mutedStyle.Render("No operations recorded yet."))
			return nil
		}

		fmt.Println(titleStyle.Render("Operations"))
		fmt.Printf("  Total:        %d\n", overview.Total)
		fmt.Printf("  Succeeded:    %d\n", overview.Succeeded)
		fmt.Printf("  Failed:       %d\n", overview.Failed)
		fmt.Printf("  Timed out:    %d\n", overview.TimedOut)
		fmt.Printf("  Success rate: %.1f%%\n", overview.SuccessRate*100)
		fmt.Printf("  Avg duration: %s\n", overview.AvgDuration.Round(time.Millisecond))

		rows, err := a.collector.ByOperation()
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render("By operation"))
			for _, r := range rows {
				fmt.Printf("  %-10s %4d calls, %d ok, avg %s\n",
					r.Operation, r.Total, r.Succeeded, r.AvgDuration.Round(time.Millisecond))
			}
		}

		daily, err := a.collector.Daily(statsDays)
		if err != nil {
			return err
		}
		if len(daily) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render(fmt.Sprintf("Last %d days", statsDays)))
			var max int64
			for _, d := range daily {
				if d.Total > max {
					max = d.Total
				}
			}
			for _, d := range daily {
				bar := strings.Repeat("█", int(d.Total*30/max))
				fmt.Printf("  %s %4d %s\n", d.Date, d.Total, mutedStyle.Render(bar))
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "days of history for the daily breakdown")
}

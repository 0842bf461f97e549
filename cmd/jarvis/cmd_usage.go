package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"jarvis/internal/usage"
)

// usageCmd shows the monthly budget
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show this month's metered spend and budget mode",
	RunE:  runUsage,
}

func runUsage(cmd *cobra.Command, args []string) error {
	guard, err := usage.NewBudgetGuard(cfg.DataDir, cfg.Budget.MonthlyLimit)
	if err != nil {
		return err
	}
	stats := guard.Stats()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "💰 Usage %s\n", stats.Month)
	fmt.Fprintln(out, strings.Repeat("─", 40))
	fmt.Fprintf(out, "Spent:   %.3f / %.2f (%.0f%%)\n", stats.Spent, guard.Limit(), guard.Ratio()*100)
	fmt.Fprintf(out, "Mode:    %s (%d results per provider)\n", guard.Mode(), guard.MaxResults())

	ops := make([]string, 0, len(stats.ByOperation))
	for op := range stats.ByOperation {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		t := stats.ByOperation[op]
		fmt.Fprintf(out, "  %-14s %4d calls  %.3f\n", op, t.Count, t.Cost)
	}
	return nil
}

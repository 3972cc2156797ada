package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func indicatorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Show the traffic-light indicators of a project",
		RunE:  runIndicators,
	}
	cmd.Flags().String("code", "", "Project code")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func runIndicators(cmd *cobra.Command, _ []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	code, _ := cmd.Flags().GetString("code")

	res, err := a.indicators.Compute(cmd.Context(), code)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(res)
	}

	fmt.Fprintf(a.out, "%s  %s  (%d snapshots)\n", res.ProjectCode, deref(res.ProjectName), res.Snapshots)
	fmt.Fprintf(a.out, "  productivity: %s\n  deviation:    %s\n  phase:        %s\n  aggregate:    %s\n",
		res.Productivity, res.Deviation, res.Phase, res.Aggregate)
	for _, c := range res.Changes {
		fmt.Fprintf(a.out, "  %d-W%02d %s moved %s\n", c.Year, c.Week, c.Milestone, c.Direction)
	}
	return nil
}

func seriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print the weekly metric series of a project",
		RunE:  runSeries,
	}
	cmd.Flags().String("code", "", "Project code")
	cmd.Flags().Int("limit", 12, "Number of most recent weeks (0 = all)")
	cmd.Flags().Bool("desc", false, "Newest week first")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func runSeries(cmd *cobra.Command, _ []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	code, _ := cmd.Flags().GetString("code")
	limit, _ := cmd.Flags().GetInt("limit")
	desc, _ := cmd.Flags().GetBool("desc")

	items, err := a.indicators.Series(cmd.Context(), code, limit, desc)
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(items)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WEEK\tPROGRESS\tREAL H\tTHEO H\tDEV %\tΔ REAL\tRATIO")
	for _, s := range items {
		fmt.Fprintf(tw, "%d-W%02d\t%s\t%s\t%s\t%s\t%s\t%s\n", s.Year, s.Week,
			num(s.ProgressW), num(s.RealHours), num(s.TheoreticalHours),
			num(s.DeviationPct), num(s.RealHoursDelta), num(s.ProductivityRatio))
	}
	return tw.Flush()
}

func num(f *float64) string {
	if f == nil {
		return "-"
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tiva/internal/activity"
)

func newConcurrencyCmd(e *env) *cobra.Command {
	var tf tableFlags
	var out, profile string
	var limit int

	cmd := &cobra.Command{
		Use:   "concurrency [activity-file]",
		Short: "Sample how many activities run at once",
		Long: `Sample the number of concurrently active records at every interval
boundary and place the counts on a uniform grid.

Example: tiva concurrency cases.csv --start-col anesthesia_start --end-col anesthesia_end --out concurrency.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(e, args[0], tf)
			if err != nil {
				return err
			}
			s := activity.NewSampler(activity.SamplerConfig{
				Step:    e.cfg.Sampler.Resolution,
				Bounds:  e.cfg.Sampler.Bounds(),
				Workers: e.cfg.Sampler.Workers,
				Limit:   limit,
			}, activity.WithLogger(e.logger), activity.WithObserver(e.metrics))

			series, err := s.Sample(cmd.Context(), t)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout(), table.Row{"Activities", "Grid Points", "Step", "First", "Last", "Peak"})
			first, last := "", ""
			if lo, hi, err := series.Span(); err == nil {
				first, last = lo.Format("2006-01-02 15:04"), hi.Format("2006-01-02 15:04")
			}
			tw.AppendRow(table.Row{t.Len(), series.Len(), series.Step, first, last, series.Max()})
			tw.Render()

			if out != "" {
				if err := writeSeries(out, series); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			}
			if profile != "" {
				if err := writeProfile(profile, activity.WeeklyProfile(series)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", profile)
			}
			return nil
		},
	}

	tf.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Write the concurrency series as CSV")
	cmd.Flags().StringVar(&profile, "profile", "", "Write the weekly concurrency profile as CSV")
	cmd.Flags().IntVar(&limit, "limit", 0, "Sample at most this many boundaries")
	return cmd
}

package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tiva/internal/stats"
)

func newCompareCmd(e *env) *cobra.Command {
	var tf tableFlags
	var unit time.Duration

	cmd := &cobra.Command{
		Use:   "compare [activity-file]",
		Short: "Compare activity durations between categories",
		Long: `Describe activity durations per category, then test whether the mean
durations differ (one-way ANOVA) and which pairs differ (Tukey HSD).

Example: tiva compare activities.csv --category induction --category emergence --unit 1m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(e, args[0], tf)
			if err != nil {
				return err
			}
			labels, samples := stats.DurationsByCategory(t, unit)
			conf := e.cfg.Sampler.Confidence
			w := cmd.OutOrStdout()

			desc := newTable(w, table.Row{"Category", "Count", "Mean", "Std", "Min", "Median", "Max", "SEM",
				fmt.Sprintf("%.0f%% CI", conf*100)})
			for i, l := range labels {
				d, err := stats.Describe(l, samples[i], conf)
				if err != nil {
					return fmt.Errorf("describe %q: %w", l, err)
				}
				desc.AppendRow(table.Row{d.Group, d.Count, f3(d.Mean), f3(d.Std), f3(d.Min), f3(d.Median), f3(d.Max),
					f3(d.SEM), fmt.Sprintf("[%s, %s]", f3(d.LowerCI), f3(d.UpperCI))})
			}
			desc.Render()

			shape := newTable(w, table.Row{"Category", "Skewness", "Excess Kurtosis", "Jarque-Bera p", "Normal", "Outliers"})
			for i, l := range labels {
				if len(samples[i]) < 3 {
					continue
				}
				sh, err := stats.ShapeOf(l, samples[i], e.cfg.Sampler.Alpha)
				if err != nil {
					return err
				}
				shape.AppendRow(table.Row{sh.Group, f3(sh.Skewness), f3(sh.ExcessKurtosis),
					fmt.Sprintf("%.4g", sh.NormalityP), sh.Normal, sh.Outliers})
			}
			shape.Render()

			anova, hsd, err := stats.TestGroupMeans(samples, labels, e.cfg.Sampler.Alpha, conf)
			if err != nil {
				return err
			}
			at := newTable(w, table.Row{"F", "df (between, within)", "p", "alpha", "Means Differ"})
			at.AppendRow(table.Row{f3(anova.FStatistic), fmt.Sprintf("%g, %g", anova.DFBetween, anova.DFWithin),
				fmt.Sprintf("%.4g", anova.PValue), anova.Alpha, anova.RejectH0})
			at.Render()

			ht := newTable(w, table.Row{"Group 1", "Group 2", "Mean Diff", "p", "Lower", "Upper", "Reject"})
			for _, p := range hsd.Pairs {
				ht.AppendRow(table.Row{p.Group1, p.Group2, f3(p.Statistic), fmt.Sprintf("%.4g", p.PValue),
					f3(p.LowerCI), f3(p.UpperCI), p.RejectH0})
			}
			ht.Render()
			return nil
		},
	}

	tf.register(cmd)
	cmd.Flags().DurationVar(&unit, "unit", time.Minute, "Duration unit of the reported statistics")
	return cmd
}

func f3(v float64) string { return fmt.Sprintf("%.3f", v) }

package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tiva/adapters/excel"
	"tiva/internal/activity"
	"tiva/internal/dataset"
)

func newUnduplicateCmd(e *env) *cobra.Command {
	var tf tableFlags
	var strata []string
	var label, out, gantt string
	var parallelism int

	cmd := &cobra.Command{
		Use:   "unduplicate [activity-file]",
		Short: "Collapse overlapping activities into busy spans per stratum",
		Long: `Collapse overlapping activities into maximal busy spans, separately for
every combination of the strata columns.

Example: tiva unduplicate activities.csv --strata case_id --label "anesthesia care" --out spans.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readTable(e, args[0], tf)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("parallelism") {
				parallelism = e.cfg.Sampler.Parallelism
			}
			spans, err := e.runner().Unduplicate(cmd.Context(), t, activity.RunOptions{
				Strata:      strata,
				Label:       label,
				Parallelism: parallelism,
			})
			if err != nil {
				return err
			}

			var busy time.Duration
			for _, d := range spans.Durations() {
				busy += d
			}
			tw := newTable(cmd.OutOrStdout(), table.Row{"Activities", "Strata", "Spans", "Busy Time"})
			tw.AppendRow(table.Row{t.Len(), len(activity.Stratify(t, strata)), spans.Len(), busy})
			tw.Render()

			if out != "" {
				if err := writeActivity(out, spans); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			}
			if gantt != "" {
				if err := writeGantt(gantt, spans, strata); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", gantt)
			}
			return nil
		},
	}

	tf.register(cmd)
	cmd.Flags().StringSliceVar(&strata, "strata", nil, "Columns partitioning the activities (repeatable)")
	cmd.Flags().StringVar(&label, "label", "unduplicated activity", "Category of the emitted spans")
	cmd.Flags().IntVar(&parallelism, "parallelism", 1, "Strata processed at once")
	cmd.Flags().StringVar(&out, "out", "", "Write the busy spans as CSV")
	cmd.Flags().StringVar(&gantt, "gantt", "", "Write Gantt chart rows for the spans as CSV")
	return cmd
}

func writeGantt(path string, t *activity.Table, strata []string) error {
	rows := t.GanttRows(activity.GanttOptions{Strata: strata, WithColumnNames: len(strata) > 1})
	data := make([][]interface{}, len(rows))
	for i, r := range rows {
		data[i] = []interface{}{r.Task, r.Start, r.Duration}
	}
	ds, err := dataset.New([]string{"task", "start_seconds", "duration_seconds"}, data, dataset.Schema{})
	if err != nil {
		return err
	}
	return excel.WriteCSV(path, ds)
}

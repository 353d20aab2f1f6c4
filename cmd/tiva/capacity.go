package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tiva/adapters/excel"
	"tiva/internal/activity"
	"tiva/internal/dataset"
	"tiva/internal/staffing"
)

func newCapacityCmd(e *env) *cobra.Command {
	var shiftsFile, sheet, out, activityOut string
	var freq time.Duration

	cmd := &cobra.Command{
		Use:   "capacity [assignments-file]",
		Short: "Staffing capacity over time from shift assignments",
		Long: `Turn shift assignments (assignment, date) into provider activity and a
capacity time series, using shift definitions from a YAML file.

Example: tiva capacity assignments.csv --shifts shifts.yaml --freq 15m --out capacity.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shifts, err := staffing.LoadShifts(shiftsFile)
			if err != nil {
				return err
			}
			ds, err := excel.NewDataReader(args[0]).ReadDataSet(sheet, dataset.Schema{})
			if err != nil {
				return err
			}
			a, err := staffing.NewAssignments(ds)
			if err != nil {
				return err
			}
			excluded, err := a.LimitToShifts(shifts)
			if err != nil {
				return err
			}
			if excluded.Len() > 0 {
				e.logger.Warn("%d assignments name no known shift", excluded.Len())
			}

			series, err := a.Capacity(shifts, freq, time.Time{}, time.Time{})
			if err != nil {
				return err
			}
			peak := 0.0
			for _, p := range series.Points {
				if p.Capacity > peak {
					peak = p.Capacity
				}
			}
			tw := newTable(cmd.OutOrStdout(), table.Row{"Shifts", "Assignments", "Grid Points", "Peak Capacity"})
			tw.AppendRow(table.Row{len(shifts), a.Len(), len(series.Points), peak})
			tw.Render()

			if out != "" {
				rows := make([][]interface{}, len(series.Points))
				for i, p := range series.Points {
					rows[i] = []interface{}{p.At, p.Capacity}
				}
				cs, err := dataset.New([]string{activity.TimestampColumn, staffing.CapacityColumn}, rows,
					dataset.Schema{Datetime: []string{activity.TimestampColumn}})
				if err != nil {
					return err
				}
				if err := excel.WriteCSV(out, cs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			}
			if activityOut != "" {
				t, err := a.ToActivity(shifts, activity.WithResolution(e.cfg.Sampler.Resolution))
				if err != nil {
					return err
				}
				if err := writeActivity(activityOut, t); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", activityOut)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&shiftsFile, "shifts", "", "YAML file of provider shift definitions")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name for XLSX input")
	cmd.Flags().DurationVar(&freq, "freq", 15*time.Minute, "Capacity grid step")
	cmd.Flags().StringVar(&out, "out", "", "Write the capacity series as CSV")
	cmd.Flags().StringVar(&activityOut, "activity-out", "", "Write the assigned shifts as an activity CSV")
	_ = cmd.MarkFlagRequired("shifts")
	return cmd
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tiva/adapters/excel"
	"tiva/internal/study"
)

func newStudyCmd(e *env) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "study [study-config]",
		Short: "Run a study: limit cases, extract activities, unduplicate",
		Long: `Load cases, events and medications named in a YAML study configuration,
apply the case limits, extract medication and event-pair activities,
collapse them per stratum and sample the unduplicated concurrency.

Outputs written to --out-dir:
- activity.csv      extracted activities
- unduplicated.csv  busy spans per stratum
- concurrency.csv   concurrency of the busy spans

Example: tiva study study.yaml --out-dir results`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := study.LoadConfig(args[0])
			if err != nil {
				return err
			}
			st, err := study.Load(cfg.Data, excel.Loader{})
			if err != nil {
				return err
			}
			st.WithResolution(e.cfg.Sampler.Resolution).WithParallelism(e.cfg.Sampler.Parallelism)

			tables, err := st.Process(cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, st.Summarize())
			if st.Activity == nil {
				return fmt.Errorf("study %s extracted no activities", st.ID)
			}

			tw := newTable(w, table.Row{"#", "Activities", "Categories"})
			for i, t := range tables {
				tw.AppendRow(table.Row{i + 1, t.Len(), t.Summary(3)})
			}
			tw.Render()

			r := e.runner()
			series, err := st.UnduplicatedConcurrency(cmd.Context(), r, cfg.Unduplicate.Strata, cfg.Unduplicate.Label)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d unduplicated spans, peak concurrency %d\n", st.Unduplicated().Len(), series.Max())

			if outDir == "" {
				return nil
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			outputs := []struct {
				name  string
				write func(string) error
			}{
				{"activity.csv", func(p string) error { return writeActivity(p, st.Activity) }},
				{"unduplicated.csv", func(p string) error { return writeActivity(p, st.Unduplicated()) }},
				{"concurrency.csv", func(p string) error { return writeSeries(p, series) }},
			}
			for _, o := range outputs {
				p := filepath.Join(outDir, o.name)
				if err := o.write(p); err != nil {
					return err
				}
				fmt.Fprintf(w, "wrote %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for study outputs")
	return cmd
}

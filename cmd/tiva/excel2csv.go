package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tiva/adapters/excel"
)

func newExcel2CSVCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "excel2csv [dump-config]",
		Short: "Dump configured worksheets of a workbook to CSV files",
		Long: `Write each worksheet named in a YAML dump configuration to its own CSV file.

Example config:
  workbook: export.xlsx
  output_dir: data
  prefix: study_
  sheets:
    cases: {sheet: Base, csv_filename: cases}
    events: {sheet: Events, csv_filename: events}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := excel.LoadDumpConfig(args[0])
			if err != nil {
				return err
			}
			paths, err := excel.DumpSheets(*cfg)
			if err != nil {
				return err
			}
			e.logger.Info("dumped %d sheets from %s", len(paths), cfg.Workbook)
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
			}
			return nil
		},
	}
	return cmd
}

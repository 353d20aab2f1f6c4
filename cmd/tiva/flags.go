package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tiva/domain/core"
	"tiva/internal"
	"tiva/internal/activity"
	"tiva/internal/config"
	"tiva/internal/errors"
)

// applyFlags overrides configuration values with explicitly set flags.
func applyFlags(cmd *cobra.Command, cfg *config.Config, resolution string, workers int,
	includeLeft, includeRight bool, trailing, metricsFile, logLevel string) error {
	changed := cmd.Flags().Changed

	if changed("resolution") {
		r, err := core.ParseResolution(resolution)
		if err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("--resolution: %v", err))
		}
		cfg.Sampler.Resolution = r
	}
	if changed("workers") {
		if workers < 1 {
			return errors.ConfigInvalid("--workers must be at least 1")
		}
		cfg.Sampler.Workers = workers
	}
	if changed("include-left") {
		cfg.Sampler.IncludeLeft = includeLeft
	}
	if changed("include-right") {
		cfg.Sampler.IncludeRight = includeRight
	}
	if changed("trailing-span") {
		p, err := activity.ParseTrailingSpanPolicy(trailing)
		if err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("--trailing-span: %v", err))
		}
		cfg.Sampler.TrailingSpan = p
	}
	if changed("metrics-file") {
		cfg.Output.MetricsFile = metricsFile
	}
	if changed("log-level") {
		cfg.Log.Level = internal.ParseLogLevel(logLevel)
	}
	return nil
}

// tableFlags are the input options shared by commands that read an
// activity table.
type tableFlags struct {
	sheet       string
	startCol    string
	endCol      string
	categoryCol string
	categories  []string
}

func (t *tableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.sheet, "sheet", "", "Worksheet name for XLSX input (default: Sheet1)")
	cmd.Flags().StringVar(&t.startCol, "start-col", activity.StartColumn, "Column holding activity starts")
	cmd.Flags().StringVar(&t.endCol, "end-col", activity.EndColumn, "Column holding activity ends")
	cmd.Flags().StringVar(&t.categoryCol, "category-col", activity.CategoryColumn, "Column holding activity categories")
	cmd.Flags().StringSliceVar(&t.categories, "category", nil, "Keep only these categories (repeatable)")
}

func (t *tableFlags) columnMap() map[string]string {
	m := make(map[string]string)
	if t.startCol != activity.StartColumn {
		m[t.startCol] = activity.StartColumn
	}
	if t.endCol != activity.EndColumn {
		m[t.endCol] = activity.EndColumn
	}
	if t.categoryCol != activity.CategoryColumn {
		m[t.categoryCol] = activity.CategoryColumn
	}
	return m
}

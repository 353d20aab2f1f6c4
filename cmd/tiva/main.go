package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tiva/internal"
	"tiva/internal/activity"
	"tiva/internal/config"
	"tiva/internal/metrics"
)

// env is the state shared by every subcommand.
type env struct {
	cfg     *config.Config
	logger  *internal.Logger
	metrics *metrics.Collector
}

// runner builds a runner from the loaded configuration, reporting to the
// metrics collector.
func (e *env) runner() *activity.Runner {
	return e.cfg.Sampler.NewRunner(activity.WithLogger(e.logger), activity.WithObserver(e.metrics))
}

func main() {
	if err := godotenv.Load(); err != nil {
		internal.DefaultLogger.Debug("no .env file found, using system environment variables")
	}
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var (
		resolution   string
		workers      int
		includeLeft  bool
		includeRight bool
		trailing     string
		metricsFile  string
		logLevel     string
	)

	rootCmd := &cobra.Command{
		Use:           "tiva",
		Short:         "Time interval activity analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Analyse time-bounded activities: concurrency over time, unduplicated
busy spans per stratum, duration comparisons between categories.

Defaults come from the environment (and a .env file):
- TIVA_RESOLUTION (default: 1min)
- TIVA_WORKERS (default: NumCPU-1)
- TIVA_INCLUDE_LEFT / TIVA_INCLUDE_RIGHT (default: true / false)
- TIVA_TRAILING_SPAN=close|error (default: close)
- TIVA_METRICS_FILE (optional Prometheus textfile)
- LOG_LEVEL (default: info)`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg, resolution, workers, includeLeft, includeRight, trailing, metricsFile, logLevel); err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = internal.NewLogger(cfg.Log.Level)
			internal.DefaultLogger.SetLevel(cfg.Log.Level)
			e.metrics = metrics.NewCollector()
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg == nil || e.cfg.Output.MetricsFile == "" {
				return nil
			}
			return e.metrics.WriteTextfile(e.cfg.Output.MetricsFile)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&resolution, "resolution", "", "Sampling resolution, e.g. 1min, 15min, 1h")
	f.IntVar(&workers, "workers", 0, "Sampler worker goroutines")
	f.BoolVar(&includeLeft, "include-left", true, "Count an activity as active at its start")
	f.BoolVar(&includeRight, "include-right", false, "Count an activity as active at its end")
	f.StringVar(&trailing, "trailing-span", "", "Trailing busy span policy: close|error")
	f.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	f.StringVar(&logLevel, "log-level", "", "Log level: error|warn|info|debug|trace")

	rootCmd.AddCommand(
		newConcurrencyCmd(e),
		newUnduplicateCmd(e),
		newCompareCmd(e),
		newCapacityCmd(e),
		newAnonymizeCmd(e),
		newExcel2CSVCmd(e),
		newStudyCmd(e),
	)
	return rootCmd
}

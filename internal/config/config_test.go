package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiva/domain/core"
	"tiva/internal"
	"tiva/internal/activity"
	"tiva/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"TIVA_RESOLUTION", "TIVA_WORKERS", "TIVA_PARALLELISM", "TIVA_INCLUDE_LEFT",
		"TIVA_INCLUDE_RIGHT", "TIVA_TRAILING_SPAN", "TIVA_CONFIDENCE", "TIVA_ALPHA",
		"TIVA_OUTPUT_DIR", "TIVA_METRICS_FILE", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, core.Resolution(time.Minute), cfg.Sampler.Resolution)
	assert.Equal(t, activity.DefaultWorkers(), cfg.Sampler.Workers)
	assert.Equal(t, 1, cfg.Sampler.Parallelism)
	assert.Equal(t, activity.DefaultBounds, cfg.Sampler.Bounds())
	assert.Equal(t, activity.TrailingSpanClose, cfg.Sampler.TrailingSpan)
	assert.Equal(t, 0.95, cfg.Sampler.Confidence)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, internal.LogLevelInfo, cfg.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TIVA_RESOLUTION", "15min")
	t.Setenv("TIVA_WORKERS", "3")
	t.Setenv("TIVA_INCLUDE_RIGHT", "true")
	t.Setenv("TIVA_TRAILING_SPAN", "error")
	t.Setenv("TIVA_METRICS_FILE", "/tmp/tiva.prom")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, core.Resolution(15*time.Minute), cfg.Sampler.Resolution)
	assert.Equal(t, 3, cfg.Sampler.Workers)
	assert.Equal(t, activity.Bounds{IncludeLeft: true, IncludeRight: true}, cfg.Sampler.Bounds())
	assert.Equal(t, activity.TrailingSpanError, cfg.Sampler.TrailingSpan)
	assert.Equal(t, "/tmp/tiva.prom", cfg.Output.MetricsFile)
	assert.Equal(t, internal.LogLevelDebug, cfg.Log.Level)

	r := cfg.Sampler.NewRunner()
	assert.Equal(t, 3, r.Sampler().Config().Workers)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"resolution": {"TIVA_RESOLUTION", "-5m"},
		"workers":    {"TIVA_WORKERS", "many"},
		"zero":       {"TIVA_PARALLELISM", "0"},
		"policy":     {"TIVA_TRAILING_SPAN", "extend"},
		"confidence": {"TIVA_CONFIDENCE", "1.5"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiva/internal/errors"
)

const activityCSV = `activity_start,activity_end,activity,case_id
2024-01-08 10:00,2024-01-08 10:30,A,c1
2024-01-08 10:15,2024-01-08 10:45,B,c1
2024-01-08 11:00,2024-01-08 11:30,A,c2
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TIVA_WORKERS", "2")
	t.Setenv("LOG_LEVEL", "error")
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeInput(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "activities.csv")
	require.NoError(t, os.WriteFile(path, []byte(activityCSV), 0o644))
	return dir, path
}

func lines(t *testing.T, path string) []string {
	t.Helper()
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(body)), "\n")
}

func TestConcurrencyCommand(t *testing.T) {
	dir, in := writeInput(t)
	out := filepath.Join(dir, "concurrency.csv")
	metricsFile := filepath.Join(dir, "tiva.prom")

	stdout, err := execute(t, "concurrency", in, "--out", out, "--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote "+out)

	rows := lines(t, out)
	assert.Equal(t, "timestamp,concurrent_activity_count", rows[0])
	// 10:00 through 11:30 on a one-minute grid
	assert.Len(t, rows, 1+91)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "tiva_sampler_runs_total 1")
	assert.Contains(t, string(prom), "tiva_sampler_samples_total 6")
}

func TestUnduplicateCommand(t *testing.T) {
	dir, in := writeInput(t)
	out := filepath.Join(dir, "spans.csv")
	gantt := filepath.Join(dir, "gantt.csv")

	_, err := execute(t, "unduplicate", in, "--strata", "case_id", "--label", "busy", "--out", out, "--gantt", gantt)
	require.NoError(t, err)

	rows := lines(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, "activity_start,activity_end,activity,duration,case_id", rows[0])
	assert.Contains(t, rows[1], "busy")
	assert.True(t, strings.HasSuffix(rows[1], ",45m0s,c1"), rows[1])
	assert.True(t, strings.HasSuffix(rows[2], ",30m0s,c2"), rows[2])

	g := lines(t, gantt)
	require.Len(t, g, 3)
	assert.Equal(t, "task,start_seconds,duration_seconds", g[0])
	assert.True(t, strings.HasPrefix(g[1], "c1 1,"), g[1])
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	_, in := writeInput(t)
	_, err := execute(t, "concurrency", in, "--trailing-span", "extend")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	_, err = execute(t, "concurrency", in, "--workers", "0")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

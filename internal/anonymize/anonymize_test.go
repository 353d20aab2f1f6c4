package anonymize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiva/internal/dataset"
)

func TestHashAndSlash(t *testing.T) {
	a := New(1)
	h := a.HashAndSlash("MRN-0042", 8)
	assert.Len(t, h, 8)
	assert.Regexp(t, "^[0-9a-f]+$", h)

	full := a.HashAndSlash("MRN-0042", DefaultSliceSize)
	assert.LessOrEqual(t, len(full), 64)
	assert.GreaterOrEqual(t, len(full), 64-55)
}

func TestHashColumnsIsStablePerValue(t *testing.T) {
	ds, err := dataset.New([]string{"case_id", "mrn"}, [][]interface{}{
		{"c1", "m1"}, {"c2", "m2"}, {"c3", "m1"},
	}, dataset.Schema{})
	require.NoError(t, err)

	out, err := New(7).HashColumns(ds, []string{"mrn", "absent"}, nil)
	require.NoError(t, err)
	mrn := out.Column("mrn")
	assert.Equal(t, mrn[0], mrn[2])
	assert.NotEqual(t, mrn[0], mrn[1])
	assert.NotEqual(t, "m1", mrn[0])
	assert.Equal(t, "c1", out.Value(0, "case_id"))
	assert.Equal(t, "m1", ds.Value(0, "mrn"), "source is untouched")

	upper, err := New(7).HashColumns(ds, []string{"case_id"}, func(s string) string { return "X" + s })
	require.NoError(t, err)
	assert.Equal(t, "Xc2", upper.Value(1, "case_id"))
}

func TestOffsetColumnsKeepsRowIntervals(t *testing.T) {
	ds, err := dataset.New([]string{"start", "end"}, [][]interface{}{
		{"2024-01-08 08:00", "2024-01-08 09:30"},
		{"2024-01-09 10:00", nil},
	}, dataset.Schema{Datetime: []string{"start", "end"}})
	require.NoError(t, err)

	a := New(3)
	out, err := a.OffsetColumns(ds, []string{"start", "end"}, a.RandomOffset(-3600, 3600, time.Second))
	require.NoError(t, err)

	starts, err := out.Times("start")
	require.NoError(t, err)
	ends, err := out.Times("end")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, ends[0].Sub(starts[0]))
	assert.True(t, ends[1].IsZero())

	orig, err := ds.Times("start")
	require.NoError(t, err)
	assert.LessOrEqual(t, starts[1].Sub(orig[1]).Abs(), time.Hour)

	fixed, err := a.OffsetColumns(ds, []string{"start"}, func() time.Duration { return time.Hour })
	require.NoError(t, err)
	shifted, err := fixed.Times("start")
	require.NoError(t, err)
	assert.Equal(t, orig[0].Add(time.Hour), shifted[0])

	_, err = a.OffsetColumns(ds, []string{"missing"}, nil)
	assert.Error(t, err)
}

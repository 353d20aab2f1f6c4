package excel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tiva/domain/core"
	"tiva/internal/activity"
	"tiva/internal/dataset"
	"tiva/internal/errors"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"case_id", "anesthesia_start", "anesthesia_end", "procedure"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"c1", "2024-01-08 08:00", "2024-01-08 09:00", "ECV"}))
	_, err := f.NewSheet("Events")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Events", "A1", &[]interface{}{"case_id", "event_label", "event_datetime"}))
	require.NoError(t, f.SetSheetRow("Events", "A2", &[]interface{}{"c1", "Patient in Room", "2024-01-08 08:05"}))
	require.NoError(t, f.SetSheetRow("Events", "A3", &[]interface{}{"c1", "Anesthesia Stop", "2024-01-08 08:50"}))
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadCSVIntoDataSet(t *testing.T) {
	path := writeFile(t, "acts.csv", " activity_start ,activity_end,activity,case_id\n"+
		"2024-01-08 10:00,2024-01-08 10:30,A, 1\n"+
		"2024-01-08 10:15,,B,2\n")

	ds, err := NewDataReader(path).ReadDataSet("", activity.Schema)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"activity_start", "activity_end", "activity", "case_id"}, ds.Columns())
	assert.Equal(t, "1", ds.Value(0, "case_id"))
	assert.Nil(t, ds.Value(1, "activity_end"))
	starts, err := ds.Times("activity_start")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC), starts[0])
}

func TestReadCSVSchemaViolation(t *testing.T) {
	path := writeFile(t, "acts.csv", "start,end\n2024-01-08 10:00,2024-01-08 10:30\n")
	_, err := NewDataReader(path).ReadDataSet("", activity.Schema)
	assert.ErrorIs(t, err, core.ErrSchema)
}

func TestReadMissingAndEmptyFiles(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "nope.csv")).ReadData("")
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))

	_, err = NewDataReader(writeFile(t, "empty.csv", "")).ReadData("")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	raw, err := NewDataReader(writeFile(t, "header.csv", "a,b\n")).ReadData("")
	require.NoError(t, err)
	assert.Empty(t, raw.Rows)
}

func TestReadWorkbookSheets(t *testing.T) {
	path := writeWorkbook(t)

	cases, err := Loader{}.Read(path, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cases.Len())
	assert.Equal(t, "ECV", cases.Value(0, "procedure"))

	events, err := Loader{}.Read(path, "Events")
	require.NoError(t, err)
	assert.Equal(t, 2, events.Len())

	_, err = Loader{}.Read(path, "Staff")
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl, err := activity.NewTable([]activity.Record{{
		Start:    time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 8, 10, 30, 0, 0, time.UTC),
		Category: "A",
		Attrs:    map[string]interface{}{"case_id": "c1"},
	}})
	require.NoError(t, err)
	ds, err := tbl.ToDataSet()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(path, ds))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "activity_start,activity_end,activity,duration,case_id\n"+
		"2024-01-08 10:00:00,2024-01-08 10:30:00,A,30m0s,c1\n", string(body))

	back, err := NewDataReader(path).ReadDataSet("", activity.Schema)
	require.NoError(t, err)
	again, err := activity.FromDataSet(back)
	require.NoError(t, err)
	assert.Equal(t, tbl.Record(0).Start, again.Record(0).Start)
	assert.Equal(t, "c1", again.Record(0).Attrs["case_id"])
}

func TestDumpSheets(t *testing.T) {
	workbook := writeWorkbook(t)
	outDir := t.TempDir()
	cfgPath := writeFile(t, "dump.yaml", "workbook: "+workbook+"\noutput_dir: "+outDir+"\nprefix: study_\nsheets:\n"+
		"  cases: {sheet: Sheet1, csv_filename: cases}\n"+
		"  events: {sheet: Events, csv_filename: events}\n")

	cfg, err := LoadDumpConfig(cfgPath)
	require.NoError(t, err)
	paths, err := DumpSheets(*cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(outDir, "study_cases.csv"),
		filepath.Join(outDir, "study_events.csv"),
	}, paths)

	events, err := NewDataReader(paths[1]).ReadDataSet("", dataset.Schema{Required: []string{"event_label"}})
	require.NoError(t, err)
	assert.Equal(t, "Anesthesia Stop", events.Value(1, "event_label"))

	_, err = LoadDumpConfig(writeFile(t, "bad.yaml", "output_dir: x\n"))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

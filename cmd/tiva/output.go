package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"

	"tiva/adapters/excel"
	"tiva/internal/activity"
	"tiva/internal/dataset"
)

// readTable reads a CSV or XLSX file into an activity table.
func readTable(e *env, path string, tf tableFlags) (*activity.Table, error) {
	ds, err := excel.NewDataReader(path).ReadDataSet(tf.sheet, dataset.Schema{})
	if err != nil {
		return nil, err
	}
	t, err := activity.FromDataSet(ds,
		activity.WithResolution(e.cfg.Sampler.Resolution),
		activity.WithColumnMap(tf.columnMap()))
	if err != nil {
		return nil, err
	}
	if len(tf.categories) > 0 {
		t = t.FilterCategories(tf.categories...)
	}
	e.logger.Info("loaded %d activities from %s: %s", t.Len(), filepath.Base(path), t.Summary(3))
	return t, nil
}

func newTable(w io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(header)
	return tw
}

func writeSeries(path string, s *activity.Series) error {
	ds, err := s.ToDataSet()
	if err != nil {
		return err
	}
	return excel.WriteCSV(path, ds)
}

func writeActivity(path string, t *activity.Table) error {
	ds, err := t.ToDataSet()
	if err != nil {
		return err
	}
	return excel.WriteCSV(path, ds)
}

func writeProfile(path string, rows []activity.ProfileRow) error {
	columns := []string{"time_of_day"}
	for _, d := range activity.WeekOrder {
		columns = append(columns, d.String())
	}
	data := make([][]interface{}, len(rows))
	for i, r := range rows {
		row := make([]interface{}, len(columns))
		row[0] = fmt.Sprintf("%02d:%02d", r.MinuteOfDay/60, r.MinuteOfDay%60)
		for d := range r.Mean {
			if r.Present[d] {
				row[d+1] = r.Mean[d]
			}
		}
		data[i] = row
	}
	ds, err := dataset.New(columns, data, dataset.Schema{})
	if err != nil {
		return err
	}
	return excel.WriteCSV(path, ds)
}

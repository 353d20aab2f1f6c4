package excel

import (
	"encoding/csv"
	"os"
	"time"

	"tiva/internal/dataset"
	"tiva/internal/errors"
)

// WriteCSV writes ds with a header row. Timestamps use the dataset string
// form, nil cells are empty.
func WriteCSV(path string, ds *dataset.DataSet) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError("failed to create CSV file", err)
	}
	w := csv.NewWriter(f)
	columns := ds.Columns()
	if err := w.Write(columns); err != nil {
		f.Close()
		return errors.IOError("failed to write CSV header", err)
	}
	record := make([]string, len(columns))
	for i := 0; i < ds.Len(); i++ {
		for j, c := range columns {
			record[j] = formatCell(ds.Value(i, c))
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return errors.IOError("failed to write CSV row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.IOError("failed to flush CSV file", err)
	}
	if err := f.Close(); err != nil {
		return errors.IOError("failed to close CSV file", err)
	}
	return nil
}

func formatCell(v interface{}) string {
	if d, ok := v.(time.Duration); ok {
		return d.String()
	}
	return dataset.CoerceString(v)
}

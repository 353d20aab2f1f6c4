package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"tiva/internal"
	"tiva/internal/dataset"
	"tiva/internal/errors"
)

// DefaultSheet is read when no sheet is named.
const DefaultSheet = "Sheet1"

// RawData is a header row plus string cells, as read from the file.
type RawData struct {
	Headers []string
	Rows    [][]string
}

// ToDataSet converts the raw cells into a DataSet validated against schema.
// Empty cells become nil.
func (d *RawData) ToDataSet(schema dataset.Schema) (*dataset.DataSet, error) {
	rows := make([][]interface{}, len(d.Rows))
	for i, raw := range d.Rows {
		row := make([]interface{}, len(d.Headers))
		for j := range d.Headers {
			if j < len(raw) && raw[j] != "" {
				row[j] = raw[j]
			}
		}
		rows[i] = row
	}
	return dataset.New(d.Headers, rows, schema)
}

// DataReader reads Excel and CSV files.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a reader for filePath; the extension selects the format.
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: internal.DefaultLogger.With("DataReader")}
}

// ReadData reads the named sheet (ignored for CSV) into raw cells.
func (r *DataReader) ReadData(sheet string) (*RawData, error) {
	r.logger.Info("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); err != nil {
		return nil, errors.IOError(fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath), err)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	default:
		return r.readExcelData(sheet)
	}
}

// ReadDataSet reads the file into a DataSet validated against schema.
func (r *DataReader) ReadDataSet(sheet string, schema dataset.Schema) (*dataset.DataSet, error) {
	raw, err := r.ReadData(sheet)
	if err != nil {
		return nil, err
	}
	return raw.ToDataSet(schema)
}

func (r *DataReader) readExcelData(sheet string) (*RawData, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.IOError("failed to open Excel file", err)
	}
	defer f.Close()
	r.logger.Debug("Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	readStart := time.Now()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.IOError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}
	r.logger.Info("sheet %q read in %.2fms (%d rows)", sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

func (r *DataReader) readCSVData() (*RawData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.IOError("failed to open CSV file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.IOError("failed to read CSV file", err)
	}
	r.logger.Info("CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// processRows trims headers and cells. A file with only a header yields no
// rows; an entirely empty file is an error.
func (r *DataReader) processRows(rows [][]string) (*RawData, error) {
	if len(rows) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("%s file has no header row: %s", strings.ToUpper(r.fileType), r.filePath))
	}
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				cells[j] = strings.TrimSpace(cell)
			}
		}
		data = append(data, cells)
	}

	r.logger.Debug("%s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(data))
	return &RawData{Headers: headers, Rows: data}, nil
}

// Loader reads files into DataSets without schema checks; callers validate.
type Loader struct{}

// Read reads a CSV file or a sheet of an XLSX workbook.
func (Loader) Read(path, sheet string) (*dataset.DataSet, error) {
	return NewDataReader(path).ReadDataSet(sheet, dataset.Schema{})
}

package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"tiva/internal"
	"tiva/internal/dataset"
	"tiva/internal/errors"
)

// SheetDump maps one workbook sheet to a CSV file name (without extension).
type SheetDump struct {
	Sheet    string `yaml:"sheet"`
	Filename string `yaml:"csv_filename"`
}

// DumpConfig configures an Excel-to-CSV dump.
//
//	workbook: export.xlsx
//	output_dir: data
//	prefix: study_
//	sheets:
//	  cases: {sheet: Base, csv_filename: cases}
type DumpConfig struct {
	Workbook  string               `yaml:"workbook"`
	OutputDir string               `yaml:"output_dir"`
	Extension string               `yaml:"extension"`
	Prefix    string               `yaml:"prefix"`
	Sheets    map[string]SheetDump `yaml:"sheets"`
}

// LoadDumpConfig reads a dump configuration from YAML.
func LoadDumpConfig(path string) (*DumpConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOError("reading dump configuration", err)
	}
	var cfg DumpConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &errors.AppError{Code: errors.CodeConfigInvalid, Message: "dump configuration is not valid YAML", Cause: err}
	}
	if cfg.Workbook == "" {
		return nil, errors.ConfigInvalid("dump configuration needs a workbook")
	}
	return &cfg, nil
}

// DumpSheets writes each configured sheet of the workbook to
// <OutputDir>/<Prefix><Filename>.<Extension> and returns the written paths
// in sheet-key order.
func DumpSheets(cfg DumpConfig) ([]string, error) {
	logger := internal.DefaultLogger.With("ExcelDump")
	ext := cfg.Extension
	if ext == "" {
		ext = "csv"
	}
	f, err := excelize.OpenFile(cfg.Workbook)
	if err != nil {
		return nil, errors.IOError("failed to open Excel file", err)
	}
	defer f.Close()

	keys := make([]string, 0, len(cfg.Sheets))
	for k := range cfg.Sheets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dumped []string
	for _, key := range keys {
		sc := cfg.Sheets[key]
		rows, err := f.GetRows(sc.Sheet)
		if err != nil {
			return dumped, errors.IOError(fmt.Sprintf("failed to read sheet %q", sc.Sheet), err)
		}
		r := &DataReader{filePath: cfg.Workbook, fileType: "xlsx", logger: logger}
		raw, err := r.processRows(rows)
		if err != nil {
			return dumped, err
		}
		ds, err := raw.ToDataSet(dataset.Schema{})
		if err != nil {
			return dumped, err
		}
		out := filepath.Join(cfg.OutputDir, cfg.Prefix+sc.Filename+"."+ext)
		if err := WriteCSV(out, ds); err != nil {
			return dumped, err
		}
		logger.Info("sheet %q -> %s (%d rows)", sc.Sheet, out, ds.Len())
		dumped = append(dumped, out)
	}
	return dumped, nil
}

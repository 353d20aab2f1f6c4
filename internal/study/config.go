package study

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tiva/internal/dataset"
	"tiva/internal/errors"
)

// Config describes a study: where its data lives, how cases are limited
// and which activities are extracted.
//
//	data:
//	  cases: {path: cases.csv, column_map: {CSN: case_id}}
//	  events: {path: events.xlsx, sheet: Events}
//	case_limits:
//	  anesthesia_start_range: ["2021-10-01", "2022-09-30"]
//	  procedures: [CESAREAN SECTION REPEAT, LABOR EPIDURAL/ANALGESIA]
//	activities:
//	  medication_offset_before: 2m
//	  medication_offset_after: 2m
//	  event_definitions:
//	    - label: operating room case
//	      event_start: Patient in Room
//	      event_end: Anesthesia Stop
//	      max_duration_quantile: 0.95
//	      max_duration_factor: 2
//	unduplicate:
//	  strata: [case_id]
//	  label: anesthesia care
type Config struct {
	Data        DataConfig        `yaml:"data"`
	CaseLimits  *CaseLimits       `yaml:"case_limits"`
	Activities  *ActivityConfig   `yaml:"activities"`
	Unduplicate UnduplicateConfig `yaml:"unduplicate"`
}

// DataConfig names the source of each data set.
type DataConfig struct {
	Cases       *Source `yaml:"cases"`
	Events      *Source `yaml:"events"`
	Medications *Source `yaml:"medications"`
}

// Source is a CSV file or a sheet of an XLSX workbook.
type Source struct {
	Path      string            `yaml:"path"`
	Sheet     string            `yaml:"sheet"`
	ColumnMap map[string]string `yaml:"column_map"`
	// LimitColumns keeps only the mapped columns.
	LimitColumns bool `yaml:"limit_columns"`
}

// CaseLimits restricts which cases take part in the study.
type CaseLimits struct {
	AnesthesiaStartRange []string `yaml:"anesthesia_start_range"`
	Procedures           []string `yaml:"procedures"`
	CaseSensitive        bool     `yaml:"procedures_case_sensitive"`
}

// ActivityConfig selects the activities extracted from the study.
type ActivityConfig struct {
	MedicationOffsetBefore *time.Duration    `yaml:"medication_offset_before"`
	MedicationOffsetAfter  *time.Duration    `yaml:"medication_offset_after"`
	MedicationLabel        string            `yaml:"medication_label"`
	EventDefinitions       []EventDefinition `yaml:"event_definitions"`
}

// UnduplicateConfig controls study-level unduplication.
type UnduplicateConfig struct {
	Strata []string `yaml:"strata"`
	Label  string   `yaml:"label"`
}

// DefaultMedicationLabel is the category of medication activities.
const DefaultMedicationLabel = "medication"

// ParseConfig decodes and validates a YAML study configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &errors.AppError{Code: errors.CodeConfigInvalid, Message: "study configuration is not valid YAML", Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.Unduplicate.Strata) == 0 {
		cfg.Unduplicate.Strata = []string{CaseIDColumn}
	}
	if cfg.Unduplicate.Label == "" {
		cfg.Unduplicate.Label = "unduplicated activity"
	}
	if cfg.Activities != nil && cfg.Activities.MedicationLabel == "" {
		cfg.Activities.MedicationLabel = DefaultMedicationLabel
	}
	return &cfg, nil
}

// LoadConfig reads a YAML study configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IOError("reading study configuration", err)
	}
	return ParseConfig(data)
}

// Validate checks the configuration for values that cannot be applied.
func (c *Config) Validate() error {
	if l := c.CaseLimits; l != nil && l.AnesthesiaStartRange != nil {
		if _, _, err := l.StartRange(); err != nil {
			return err
		}
	}
	if a := c.Activities; a != nil {
		if (a.MedicationOffsetBefore == nil) != (a.MedicationOffsetAfter == nil) {
			return errors.ConfigInvalid("medication_offset_before and medication_offset_after must be set together")
		}
		for i, d := range a.EventDefinitions {
			if d.StartEvent == "" || d.EndEvent == "" {
				return errors.ConfigInvalid(fmt.Sprintf("event definition %d (%q) needs event_start and event_end", i, d.Label))
			}
			if d.MaxDurationQuantile < 0 || d.MaxDurationQuantile > 1 {
				return errors.ConfigInvalid(fmt.Sprintf("event definition %q: max_duration_quantile %v outside [0, 1]", d.Label, d.MaxDurationQuantile))
			}
		}
	}
	return nil
}

// StartRange parses the anesthesia start bounds.
func (l *CaseLimits) StartRange() (time.Time, time.Time, error) {
	if len(l.AnesthesiaStartRange) != 2 {
		return time.Time{}, time.Time{}, errors.ConfigInvalid("anesthesia_start_range needs exactly two dates")
	}
	from, err := dataset.ParseTimestamp(l.AnesthesiaStartRange[0])
	if err != nil {
		return time.Time{}, time.Time{}, errors.ConfigInvalid(fmt.Sprintf("anesthesia_start_range: %v", err))
	}
	to, err := dataset.ParseTimestamp(l.AnesthesiaStartRange[1])
	if err != nil {
		return time.Time{}, time.Time{}, errors.ConfigInvalid(fmt.Sprintf("anesthesia_start_range: %v", err))
	}
	return from, to, nil
}

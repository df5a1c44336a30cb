// Package config provides configuration management for the cmortables CLI.
package config

import (
	"fmt"
	"time"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

// Config holds all CLI configuration options.
type Config struct {
	DataRequestDir    string       `koanf:"data_request_dir"`
	ReferenceFilePath string       `koanf:"reference_file_path"` // empty selects the bundled reference
	TablePrefix       string       `koanf:"table_prefix"`
	TableDate         string       `koanf:"table_date"`
	Canonical         string       `koanf:"canonical"`
	ReportDir         string       `koanf:"report_dir"`
	BlankComments     bool         `koanf:"blank_comments"`
	BlankCellMeasures bool         `koanf:"blank_cell_measures"`
	ValidateOutput    bool         `koanf:"validate_output"`
	Verbose           bool         `koanf:"verbose"`
	OutputFormat      string       `koanf:"output"`
	Header            HeaderConfig `koanf:"header"`

	// ProjectRoot anchors relative paths; it is not read from any source.
	ProjectRoot string `koanf:"-"`
}

// HeaderConfig overrides the fixed fields of every table header.
type HeaderConfig struct {
	Conventions     string `koanf:"conventions"`
	CMORVersion     string `koanf:"cmor_version"`
	MissingValue    string `koanf:"missing_value"`
	IntMissingValue string `koanf:"int_missing_value"`
	Product         string `koanf:"product"`
}

// Default configuration values.
const (
	DefaultDataRequestDir = "data_request"
	DefaultTablePrefix    = "CMIP7"
	DefaultCanonical      = "python"
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// ParseTableDate parses table_date. Both "2006-01-02 15:04:05" and RFC 3339
// are accepted; an empty value yields the zero time.
func ParseTableDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(table.DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid table_date %q: expected %q or RFC 3339", s, table.DateLayout)
	}
	return t, nil
}

// HeaderTemplate returns the header template stamped with table_date, or
// with now when no date is configured.
func (c *Config) HeaderTemplate(now time.Time) (table.Header, error) {
	date, err := ParseTableDate(c.TableDate)
	if err != nil {
		return table.Header{}, err
	}
	if date.IsZero() {
		date = now
	}

	h := table.DefaultHeader(date)
	if c.Header.Conventions != "" {
		h.Conventions = c.Header.Conventions
	}
	if c.Header.CMORVersion != "" {
		h.CMORVersion = c.Header.CMORVersion
	}
	if c.Header.MissingValue != "" {
		h.MissingValue = c.Header.MissingValue
	}
	if c.Header.IntMissingValue != "" {
		h.IntMissingValue = c.Header.IntMissingValue
	}
	if c.Header.Product != "" {
		h.Product = c.Header.Product
	}
	return h, nil
}

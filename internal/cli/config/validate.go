package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/output"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.TablePrefix == "" {
		errs = append(errs, errors.New("table_prefix is required"))
	}
	if _, err := checksum.ParseCanonical(c.Canonical); err != nil {
		errs = append(errs, err)
	}
	if !output.Valid(c.OutputFormat) {
		errs = append(errs, fmt.Errorf("unknown output format %q (auto|text|markdown|json)", c.OutputFormat))
	}
	if _, err := ParseTableDate(c.TableDate); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateDirectories checks that the configured input directories exist.
// Commands that only read produced tables skip this.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.DataRequestDir); os.IsNotExist(err) {
		return fmt.Errorf("data request directory does not exist: %s\nHint: Export the data request there or use --data-request-dir", c.DataRequestDir)
	}
	if c.ReferenceFilePath == "" {
		return nil
	}
	if _, err := os.Stat(c.ReferenceFilePath); os.IsNotExist(err) {
		return fmt.Errorf("reference directory does not exist: %s", c.ReferenceFilePath)
	}
	return nil
}

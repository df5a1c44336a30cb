// Package engine runs the table construction pipeline for one data request
// version: ingest, override, map, check, build, sign and write.
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/reference"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/schema"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

// DefaultTablePrefix names the produced table files.
const DefaultTablePrefix = "CMIP7"

// Progress receives user-facing progress lines and warnings.
type Progress interface {
	Step(format string, args ...any)
	Warn(format string, args ...any)
}

type nopProgress struct{}

func (nopProgress) Step(string, ...any) {}
func (nopProgress) Warn(string, ...any) {}

// Engine builds the tables of one request version.
type Engine struct {
	logger    *slog.Logger
	progress  Progress
	source    dreq.Source
	reference fs.FS
	signer    checksum.Signer
	validator *schema.Validator
	header    table.Header

	version           string
	outputDir         string
	reportDir         string
	prefix            string
	blankComments     bool
	blankCellMeasures bool
}

// Config holds engine configuration.
type Config struct {
	// Version is the data request version, e.g. v1.2.2.1
	Version string
	// OutputDir receives the table files
	OutputDir string
	// ReportDir receives conflict reports (defaults to OutputDir)
	ReportDir string
	// Source supplies the data request records
	Source dreq.Source
	// Reference holds the baseline tables and override files (defaults to
	// the bundled reference directory)
	Reference fs.FS
	// TablePrefix names the output files (defaults to CMIP7)
	TablePrefix string
	// Header is the template of every table header. Nil selects the
	// default template stamped with TableDate.
	Header *table.Header
	// TableDate stamps the default header (defaults to now)
	TableDate time.Time
	// Canonical selects the checksum serialization
	Canonical checksum.Canonical
	// BlankComments empties every variable comment before tables are built
	BlankComments bool
	// BlankCellMeasures empties every cell_measures after they have been
	// collected for the cell measures table
	BlankCellMeasures bool
	// ValidateOutput checks every table against its JSON schema before
	// anything is written
	ValidateOutput bool
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Progress receives progress lines (optional)
	Progress Progress
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Version == "" {
		return nil, errors.New("data request version is required")
	}
	if cfg.Source == nil {
		return nil, errors.New("data request source is required")
	}
	canonical, err := checksum.ParseCanonical(string(cfg.Canonical))
	if err != nil {
		return nil, err
	}

	progress := cfg.Progress
	if progress == nil {
		progress = nopProgress{}
	}
	ref := cfg.Reference
	if ref == nil {
		ref = reference.FS()
	}
	prefix := cfg.TablePrefix
	if prefix == "" {
		prefix = DefaultTablePrefix
	}
	reportDir := cfg.ReportDir
	if reportDir == "" {
		reportDir = cfg.OutputDir
	}

	var header table.Header
	if cfg.Header != nil {
		header = *cfg.Header
	} else {
		date := cfg.TableDate
		if date.IsZero() {
			date = time.Now()
		}
		header = table.DefaultHeader(date)
	}

	var validator *schema.Validator
	if cfg.ValidateOutput {
		validator, err = schema.NewValidator()
		if err != nil {
			return nil, fmt.Errorf("failed to load table schemas: %w", err)
		}
	}

	logger.Debug("initializing engine", "version", cfg.Version, "output_dir", cfg.OutputDir, "canonical", canonical)

	return &Engine{
		logger:            logger,
		progress:          progress,
		source:            cfg.Source,
		reference:         ref,
		signer:            checksum.Signer{Canonical: canonical},
		validator:         validator,
		header:            header,
		version:           cfg.Version,
		outputDir:         cfg.OutputDir,
		reportDir:         reportDir,
		prefix:            prefix,
		blankComments:     cfg.BlankComments,
		blankCellMeasures: cfg.BlankCellMeasures,
	}, nil
}

// Version returns the data request version the engine builds.
func (e *Engine) Version() string {
	return e.version
}

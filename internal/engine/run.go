package engine

// run.go - Table assembly and output

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/ancil"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/consistency"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

// File describes one written table.
type File struct {
	Name     string
	Path     string
	Checksum string
	// Entries is the number of variables, or 0 for ancillary tables.
	Entries int
}

// Result summarizes a completed run.
type Result struct {
	RunID       string
	Version     string
	OutputDir   string
	Files       []File
	ReportFiles []string
	Plan        *Plan
	Duration    time.Duration
}

// preparedDoc holds a signed document ready to be written.
type preparedDoc struct {
	doc     *table.Document
	path    string
	data    []byte
	entries int
}

// Run builds every table of the version using a two-phase approach:
// Phase 1: Build, sign and validate every document in memory (fail fast)
// Phase 2: Write the documents
// Nothing is written when phase 1 fails, apart from advisory conflict reports.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	logger.Info("starting run", "version", e.version, "output_dir", e.outputDir)

	plan, err := e.Plan(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Version:   e.version,
		OutputDir: e.outputDir,
		Plan:      plan,
	}
	result.ReportFiles = e.writeReports(plan.Reports)

	// Phase 1: build everything
	prepared, err := e.prepare(plan)
	if err != nil {
		logger.Error("run failed during build", "error", err)
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Phase 2: write
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, p := range prepared {
		if err := table.WriteFile(p.path, p.data); err != nil {
			logger.Error("run failed during write", "file", p.path, "error", err)
			return result, err
		}
		logger.Debug("table written", "file", p.path, "checksum", p.doc.Header.Checksum)
		result.Files = append(result.Files, File{
			Name:     filepath.Base(p.path),
			Path:     p.path,
			Checksum: p.doc.Header.Checksum,
			Entries:  p.entries,
		})
	}

	result.Duration = time.Since(start)
	logger.Info("run completed", "files", len(result.Files), "duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// prepare builds, signs, validates and encodes every document. Placeholder
// errors are collected across all realms before failing.
func (e *Engine) prepare(plan *Plan) ([]preparedDoc, error) {
	var docs []*table.Document
	entries := map[string]int{}
	var buildErrs []error
	for _, realm := range plan.Tables.Realms() {
		doc, err := table.BuildVariableTable(realm, plan.Tables[realm], e.header)
		if err != nil {
			buildErrs = append(buildErrs, err)
			continue
		}
		entries[doc.Name] = len(plan.Tables[realm])
		docs = append(docs, doc)
	}
	if len(buildErrs) > 0 {
		return nil, errors.Join(buildErrs...)
	}

	builder := ancil.Builder{Reference: e.reference, Header: e.header}
	ancillary, err := builder.All(plan.Coordinates, plan.Measures)
	if err != nil {
		return nil, err
	}
	if n := len(plan.Measures.Placeholders); n > 0 {
		e.progress.Warn("%d cell_measures placeholder(s) passed through to %s", n, table.FileName(e.prefix, "cell_measures"))
	}
	docs = append(docs, ancillary...)

	prepared := make([]preparedDoc, 0, len(docs))
	for _, doc := range docs {
		if err := doc.Sign(e.signer); err != nil {
			return nil, err
		}
		if e.validator != nil {
			if err := e.validator.ValidateDocument(doc); err != nil {
				return nil, fmt.Errorf("%s: %w", table.FileName(e.prefix, doc.Name), err)
			}
		}
		data, err := doc.Marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", doc.Name, err)
		}
		prepared = append(prepared, preparedDoc{
			doc:     doc,
			path:    filepath.Join(e.outputDir, table.FileName(e.prefix, doc.Name)),
			data:    data,
			entries: entries[doc.Name],
		})
	}
	return prepared, nil
}

// writeReports persists non-empty conflict reports as <field>.json. Reports
// are advisory, so failures are logged and the run goes on.
func (e *Engine) writeReports(reports []consistency.Report) []string {
	var written []string
	for _, r := range reports {
		if r.Empty() {
			continue
		}
		path := filepath.Join(e.reportDir, r.Field+".json")
		e.progress.Warn("Issues found with %s conflicts (%d branded names). Writing details to %s", r.Field, r.Len(), path)
		if err := os.MkdirAll(e.reportDir, 0o755); err != nil {
			e.logger.Warn("failed to create report directory", "dir", e.reportDir, "error", err)
			continue
		}
		if err := table.WriteJSON(path, r.Conflicts); err != nil {
			e.logger.Warn("failed to write conflict report", "file", path, "error", err)
			continue
		}
		written = append(written, path)
	}
	return written
}

package engine

// plan.go - Ingestion, overrides, mapping and consistency checks

import (
	"context"
	"fmt"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cellmeasures"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/consistency"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/mapping"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/overrides"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

// Plan is everything a run will write, held in memory.
type Plan struct {
	Version     string
	Variables   int
	Tables      table.Tables
	Measures    cellmeasures.Collection
	Reports     []consistency.Report
	Coordinates []dreq.Coordinate
	// Overridden counts applied overrides per kind.
	Overridden map[overrides.Kind]int
	// Skipped lists, in order, compound names without a modeling realm.
	Skipped []string
	// Duplicates counts records that shared a realm and branded name with an
	// earlier one. Only the greatest compound name is kept.
	Duplicates int
}

// Conflicts returns the number of conflicting branded names across reports.
func (p *Plan) Conflicts() int {
	n := 0
	for _, r := range p.Reports {
		n += r.Len()
	}
	return n
}

// Plan ingests the request version and maps it without writing anything.
func (e *Engine) Plan(ctx context.Context) (*Plan, error) {
	e.progress.Step("Loading Data Request version %q", e.version)

	vars, err := e.source.Variables(ctx, e.version)
	if err != nil {
		return nil, fmt.Errorf("failed to load variables: %w", err)
	}
	coords, err := e.source.Coordinates(ctx, e.version)
	if err != nil {
		return nil, fmt.Errorf("failed to load coordinates: %w", err)
	}
	e.logger.Debug("data request loaded", "variables", len(vars), "coordinates", len(coords))

	maps := make([]overrides.Map, 0, len(overrides.Kinds))
	for _, kind := range overrides.Kinds {
		m, err := overrides.Load(e.reference, e.version, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", kind, err)
		}
		if m.Source != "" {
			e.logger.Debug("overrides loaded", "kind", kind, "file", m.Source, "count", m.Len())
		}
		maps = append(maps, m)
	}

	plan := &Plan{
		Version:     e.version,
		Variables:   len(vars),
		Tables:      table.Tables{},
		Measures:    cellmeasures.Collect(vars),
		Coordinates: coords,
		Overridden:  map[overrides.Kind]int{},
	}
	if n := len(plan.Measures.Placeholders); n > 0 {
		e.logger.Debug("cell measures with placeholders", "count", n)
	}

	if e.blankComments {
		e.progress.Warn("all comments have been set to blank strings")
	}
	if e.blankCellMeasures {
		e.progress.Warn("all cell_measures have been set to blank strings; users will need to set cell_measures explicitly")
	}

	tracker := consistency.NewTracker()
	for _, v := range vars.Sorted() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.blankComments {
			v.Comment = ""
		}
		if e.blankCellMeasures {
			v.CellMeasures = ""
		}
		for _, m := range maps {
			if overrides.Apply(&v, m) {
				plan.Overridden[m.Kind]++
			}
		}

		if v.TableRealm() == "" {
			plan.Skipped = append(plan.Skipped, v.CMIP7CompoundName)
			e.logger.Warn("variable has no modeling realm", "compound_name", v.CMIP7CompoundName)
			continue
		}

		tracker.Add(v)
		if plan.Tables.Add(v.CMIP7CompoundName, mapping.MapVariable(v)) {
			plan.Duplicates++
		}
	}
	plan.Reports = tracker.Reports()

	if len(plan.Skipped) > 0 {
		e.progress.Warn("%d variable(s) without a modeling realm were skipped", len(plan.Skipped))
	}
	e.logger.Info("data request mapped",
		"version", e.version,
		"realms", len(plan.Tables),
		"entries", plan.Tables.Len(),
		"conflicts", plan.Conflicts())

	return plan, nil
}

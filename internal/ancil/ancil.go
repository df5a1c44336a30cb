// Package ancil builds the ancillary tables that accompany the per-realm
// variable tables: coordinates, formula terms, grids, long name overrides
// and cell measures.
package ancil

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cellmeasures"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/mapping"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

// Reference file names.
const (
	CoordinateFile        = "MIP_coordinate.json"
	FormulaTermsFile      = "MIP_formula_terms.json"
	GridsFile             = "MIP_grids.json"
	LongNameOverridesFile = "MIP_long_name_overrides.json"
)

// ReferenceFiles lists every file a reference directory must hold.
var ReferenceFiles = []string{CoordinateFile, FormulaTermsFile, GridsFile, LongNameOverridesFile}

// FormulaCoordinates are generic levels. Tables name them in their header
// and CMOR derives them from formula terms, so they are never defined
// standalone.
var FormulaCoordinates = []string{"alevel", "alevhalf", "olevel", "olevhalf"}

// UnsupportedCoordinates break CMOR when defined.
var UnsupportedCoordinates = []string{"xant", "yant", "xgre", "ygre"}

// ImportedCoordinates are copied verbatim from the reference coordinate
// table because the data request does not define them.
var ImportedCoordinates = []string{
	"alternate_hybrid_sigma",
	"alternate_hybrid_sigma_half",
	"depth_coord",
	"depth_coord_half",
	"hybrid_height",
	"hybrid_height_half",
	"ocean_sigma",
	"ocean_sigma_half",
	"ocean_sigma_z",
	"ocean_sigma_z_half",
	"standard_hybrid_sigma",
	"standard_hybrid_sigma_half",
	"standard_sigma",
	"standard_sigma_half",
}

// MissingReferenceEntryError is returned when a reference file, or an entry
// expected in it, does not exist.
type MissingReferenceEntryError struct {
	File string
	Name string
}

func (e *MissingReferenceEntryError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("reference file %s not found", e.File)
	}
	return fmt.Sprintf("reference file %s has no entry %q", e.File, e.Name)
}

// LoadReference reads and decodes one reference file.
func LoadReference(fsys fs.FS, name string) (map[string]any, error) {
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingReferenceEntryError{File: name}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	tree, err := table.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return tree, nil
}

// BuildCoordinates projects every data request coordinate, drops the
// formula and unsupported coordinates, and imports ImportedCoordinates from
// the reference coordinate table. The result is the axis_entry section.
func BuildCoordinates(coords []dreq.Coordinate, reference map[string]any) (map[string]any, error) {
	axes := make(map[string]any, len(coords)+len(ImportedCoordinates))
	for _, c := range coords {
		name, entry := mapping.MapCoordinate(c)
		axes[name] = map[string]any(entry)
	}
	for _, name := range FormulaCoordinates {
		delete(axes, name)
	}
	for _, name := range UnsupportedCoordinates {
		delete(axes, name)
	}

	refAxes, _ := reference[table.AxisEntry].(map[string]any)
	for _, name := range ImportedCoordinates {
		entry, ok := refAxes[name]
		if !ok {
			return nil, &MissingReferenceEntryError{File: CoordinateFile, Name: name}
		}
		axes[name] = entry
	}
	return axes, nil
}

// Builder assembles ancillary documents from a reference directory.
type Builder struct {
	Reference fs.FS
	// Header is the template every ancillary header starts from.
	Header table.Header
}

// Coordinates builds the coordinate table.
func (b Builder) Coordinates(coords []dreq.Coordinate) (*table.Document, error) {
	reference, err := LoadReference(b.Reference, CoordinateFile)
	if err != nil {
		return nil, err
	}
	axes, err := BuildCoordinates(coords, reference)
	if err != nil {
		return nil, err
	}
	return &table.Document{
		Name:     "coordinate",
		Header:   b.Header.ForAncillary("coordinates"),
		Sections: map[string]any{table.AxisEntry: axes},
	}, nil
}

// FormulaTerms passes the reference formula terms through.
func (b Builder) FormulaTerms() (*table.Document, error) {
	return b.passthrough(FormulaTermsFile, "formula_terms")
}

// Grids passes the reference grids through.
func (b Builder) Grids() (*table.Document, error) {
	return b.passthrough(GridsFile, "grids")
}

// LongNameOverrides passes the reference long name overrides through.
func (b Builder) LongNameOverrides() (*table.Document, error) {
	return b.passthrough(LongNameOverridesFile, "long_name_overrides")
}

// passthrough keeps every section of a reference file and replaces its header.
func (b Builder) passthrough(file, id string) (*table.Document, error) {
	reference, err := LoadReference(b.Reference, file)
	if err != nil {
		return nil, err
	}
	delete(reference, checksum.HeaderKey)
	return &table.Document{
		Name:     id,
		Header:   b.Header.ForAncillary(id),
		Sections: reference,
	}, nil
}

// CellMeasures builds the cell measures table from a collection.
func (b Builder) CellMeasures(c cellmeasures.Collection) *table.Document {
	return &table.Document{
		Name:     "cell_measures",
		Header:   b.Header.ForAncillary("cell_measures"),
		Sections: c.Section(),
	}
}

// All builds every ancillary document in file order.
func (b Builder) All(coords []dreq.Coordinate, measures cellmeasures.Collection) ([]*table.Document, error) {
	docs := make([]*table.Document, 0, 5)
	coordinates, err := b.Coordinates(coords)
	if err != nil {
		return nil, err
	}
	docs = append(docs, coordinates)
	for _, build := range []func() (*table.Document, error){b.FormulaTerms, b.Grids, b.LongNameOverrides} {
		doc, err := build()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return append(docs, b.CellMeasures(measures)), nil
}

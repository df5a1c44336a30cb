// Package mapping projects data request records onto the CMOR table vocabulary.
// Projection is pure: it never fails, and missing or malformed attributes
// degrade to empty values.
package mapping

import (
	"strings"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
)

// Variable is the subset of a data request variable carried by a CMOR table.
type Variable struct {
	CellMeasures        string
	CellMethods         string
	Comment             string
	OutName             string
	Positive            string
	Units               string
	LongName            string
	StandardName        string
	BrandedVariableName string
	Dimensions          []string
	ModelingRealm       string
	FlagValues          dreq.Field
	FlagMeanings        dreq.Field
}

// MapVariable extracts the table attributes from v. Dimensions are split on
// whitespace; nothing else is transformed.
func MapVariable(v dreq.Variable) Variable {
	dims := strings.Fields(v.Dimensions)
	if dims == nil {
		dims = []string{}
	}
	return Variable{
		CellMeasures:        v.CellMeasures,
		CellMethods:         v.CellMethods,
		Comment:             v.Comment,
		OutName:             v.OutName,
		Positive:            v.Positive,
		Units:               v.Units,
		LongName:            v.LongName,
		StandardName:        v.StandardName,
		BrandedVariableName: v.BrandedVariableName,
		Dimensions:          dims,
		ModelingRealm:       v.ModelingRealm,
		FlagValues:          v.FlagValues,
		FlagMeanings:        v.FlagMeanings,
	}
}

// TableName is the realm whose table the variable belongs to.
func (v Variable) TableName() string {
	fields := strings.Fields(v.ModelingRealm)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Entry returns the variable_entry body for the table. The branded name is
// the entry's key, so it is not repeated inside; flags appear only when set.
func (v Variable) Entry() map[string]any {
	entry := map[string]any{
		"cell_measures":  v.CellMeasures,
		"cell_methods":   v.CellMethods,
		"comment":        v.Comment,
		"dimensions":     append([]string{}, v.Dimensions...),
		"long_name":      v.LongName,
		"modeling_realm": v.ModelingRealm,
		"out_name":       v.OutName,
		"positive":       v.Positive,
		"standard_name":  v.StandardName,
		"units":          v.Units,
	}
	if s := v.FlagValues.String(); s != "" {
		entry["flag_values"] = s
	}
	if s := v.FlagMeanings.String(); s != "" {
		entry["flag_meanings"] = s
	}
	return entry
}

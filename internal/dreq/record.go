// Package dreq models the records delivered by a CMIP data request export:
// variable records keyed by compound name and coordinate records keyed by
// record id. Records are flat attribute mappings over a fixed schema.
package dreq

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/pyjson"
)

// Field is one attribute looked up from a raw record. Present is false when
// the record does not carry the attribute at all, which is distinct from an
// attribute holding the empty string.
type Field struct {
	Value   any
	Present bool
}

// Text returns a present string field.
func Text(s string) Field {
	return Field{Value: s, Present: true}
}

// String renders the field as text. Absent fields render as "".
func (f Field) String() string {
	if !f.Present {
		return ""
	}
	switch v := f.Value.(type) {
	case string:
		return v
	case json.Number:
		return pyjson.FormatNumber(v)
	case float64:
		return pyjson.FormatFloat(v)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Truthy reports whether the field holds a true-ish value. Absent fields,
// false, zero and the strings "", "0", "false" and "no" are false.
func (f Field) Truthy() bool {
	if !f.Present {
		return false
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case json.Number:
		n, err := v.Float64()
		return err != nil || n != 0
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no":
			return false
		}
		return true
	default:
		return true
	}
}

// Attrs is the flat attribute mapping of one raw record.
type Attrs map[string]any

// Lookup returns the named attribute. A JSON null counts as absent.
func (a Attrs) Lookup(key string) Field {
	v, ok := a[key]
	if !ok || v == nil {
		return Field{}
	}
	return Field{Value: v, Present: true}
}

// Variable is one data request entry describing one output variable.
type Variable struct {
	BrandedVariableName   string
	BrandingLabel         string
	CellMeasures          string
	CellMethods           string
	CMIP6CompoundName     string
	CMIP6Table            string
	CMIP7CompoundName     string
	Comment               string
	Dimensions            string
	Frequency             string
	LongName              string
	ModelingRealm         string
	OutName               string
	PhysicalParameterName string
	Positive              string
	ProcessingNote        string
	Region                string
	SpatialShape          string
	StandardName          string
	TemporalShape         string
	Type                  string
	UID                   string
	Units                 string
	VariableRootDD        string
	FlagValues            Field
	FlagMeanings          Field
}

// Attribute names of a variable record, in data request vocabulary.
const (
	AttrBrandedVariableName   = "branded_variable_name"
	AttrBrandingLabel         = "branding_label"
	AttrCellMeasures          = "cell_measures"
	AttrCellMethods           = "cell_methods"
	AttrCMIP6CompoundName     = "cmip6_compound_name"
	AttrCMIP6Table            = "cmip6_table"
	AttrCMIP7CompoundName     = "cmip7_compound_name"
	AttrComment               = "comment"
	AttrDimensions            = "dimensions"
	AttrFrequency             = "frequency"
	AttrLongName              = "long_name"
	AttrModelingRealm         = "modeling_realm"
	AttrOutName               = "out_name"
	AttrPhysicalParameterName = "physical_parameter_name"
	AttrPositive              = "positive"
	AttrProcessingNote        = "processing_note"
	AttrRegion                = "region"
	AttrSpatialShape          = "spatial_shape"
	AttrStandardName          = "standard_name"
	AttrTemporalShape         = "temporal_shape"
	AttrType                  = "type"
	AttrUID                   = "uid"
	AttrUnits                 = "units"
	AttrVariableRootDD        = "variableRootDD"
	AttrFlagValues            = "flag_values"
	AttrFlagMeanings          = "flag_meanings"
)

// VariableAttributes lists the fixed schema of a variable record.
var VariableAttributes = []string{
	AttrBrandedVariableName, AttrBrandingLabel, AttrCellMeasures, AttrCellMethods,
	AttrCMIP6CompoundName, AttrCMIP6Table, AttrCMIP7CompoundName, AttrComment,
	AttrDimensions, AttrFrequency, AttrLongName, AttrModelingRealm, AttrOutName,
	AttrPhysicalParameterName, AttrPositive, AttrProcessingNote, AttrRegion,
	AttrSpatialShape, AttrStandardName, AttrTemporalShape, AttrType, AttrUID,
	AttrUnits, AttrVariableRootDD, AttrFlagValues, AttrFlagMeanings,
}

// UnknownAttributeError is returned when an attribute outside the fixed
// schema is addressed.
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown variable attribute %q", e.Name)
}

func (v *Variable) text(name string) *string {
	switch name {
	case AttrBrandedVariableName:
		return &v.BrandedVariableName
	case AttrBrandingLabel:
		return &v.BrandingLabel
	case AttrCellMeasures:
		return &v.CellMeasures
	case AttrCellMethods:
		return &v.CellMethods
	case AttrCMIP6CompoundName:
		return &v.CMIP6CompoundName
	case AttrCMIP6Table:
		return &v.CMIP6Table
	case AttrCMIP7CompoundName:
		return &v.CMIP7CompoundName
	case AttrComment:
		return &v.Comment
	case AttrDimensions:
		return &v.Dimensions
	case AttrFrequency:
		return &v.Frequency
	case AttrLongName:
		return &v.LongName
	case AttrModelingRealm:
		return &v.ModelingRealm
	case AttrOutName:
		return &v.OutName
	case AttrPhysicalParameterName:
		return &v.PhysicalParameterName
	case AttrPositive:
		return &v.Positive
	case AttrProcessingNote:
		return &v.ProcessingNote
	case AttrRegion:
		return &v.Region
	case AttrSpatialShape:
		return &v.SpatialShape
	case AttrStandardName:
		return &v.StandardName
	case AttrTemporalShape:
		return &v.TemporalShape
	case AttrType:
		return &v.Type
	case AttrUID:
		return &v.UID
	case AttrUnits:
		return &v.Units
	case AttrVariableRootDD:
		return &v.VariableRootDD
	}
	return nil
}

// Get returns the named attribute. The optional flag attributes keep their
// presence; every other attribute is always present.
func (v *Variable) Get(name string) (Field, error) {
	switch name {
	case AttrFlagValues:
		return v.FlagValues, nil
	case AttrFlagMeanings:
		return v.FlagMeanings, nil
	}
	p := v.text(name)
	if p == nil {
		return Field{}, &UnknownAttributeError{Name: name}
	}
	return Text(*p), nil
}

// Set replaces the named attribute.
func (v *Variable) Set(name, value string) error {
	switch name {
	case AttrFlagValues:
		v.FlagValues = Text(value)
		return nil
	case AttrFlagMeanings:
		v.FlagMeanings = Text(value)
		return nil
	}
	p := v.text(name)
	if p == nil {
		return &UnknownAttributeError{Name: name}
	}
	*p = value
	return nil
}

// NewVariable builds a variable from a raw attribute mapping. Attributes the
// record does not carry become empty strings; attributes outside the schema
// are ignored.
func NewVariable(attrs Attrs) Variable {
	var v Variable
	for _, name := range VariableAttributes {
		f := attrs.Lookup(name)
		switch name {
		case AttrFlagValues:
			v.FlagValues = normalize(f)
		case AttrFlagMeanings:
			v.FlagMeanings = normalize(f)
		default:
			*v.text(name) = f.String()
		}
	}
	return v
}

func normalize(f Field) Field {
	if !f.Present {
		return f
	}
	return Text(f.String())
}

// TableRealm is the first token of the modeling realm. It names the table
// the variable is written into.
func (v *Variable) TableRealm() string {
	fields := strings.Fields(v.ModelingRealm)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// VariableSet maps a record key (normally the CMIP7 compound name) to its variable.
type VariableSet map[string]Variable

// Keys returns the record keys in sorted order.
func (s VariableSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sorted returns the variables ordered by record key, so that processing
// does not depend on how the set was assembled.
func (s VariableSet) Sorted() []Variable {
	keys := s.Keys()
	out := make([]Variable, 0, len(keys))
	for _, k := range keys {
		out = append(out, s[k])
	}
	return out
}

// Coordinate is one data request entry describing one coordinate axis.
type Coordinate struct {
	ID    string
	Name  string
	Attrs Attrs
}

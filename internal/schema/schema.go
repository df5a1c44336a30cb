// Package schema validates produced table documents against the JSON
// schemas of the CMOR table format.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

const baseURL = "https://wcrp-cmip.github.io/cmip7-cmor-tables/schemas/"

// Kind selects the schema a document is checked against.
type Kind string

const (
	Variable   Kind = "variable"
	Coordinate Kind = "coordinate"
	Ancillary  Kind = "ancillary"
)

// Kinds lists every compiled schema.
var Kinds = []Kind{Variable, Coordinate, Ancillary}

// KindOf guesses the kind of a decoded document from its header and
// sections.
func KindOf(tree map[string]any) Kind {
	header, _ := tree[checksum.HeaderKey].(map[string]any)
	if header["table_id"] == "coordinates" {
		return Coordinate
	}
	if realm, _ := header["realm"].(string); realm != "" {
		if _, ok := tree[table.VariableEntry]; ok {
			return Variable
		}
	}
	return Ancillary
}

// Validator checks documents against the compiled schemas.
type Validator struct {
	schemas map[Kind]*jsonschema.Schema
}

// NewValidator compiles the embedded schemas.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	entries, err := schemaFiles.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	for _, e := range entries {
		data, err := schemaFiles.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", e.Name(), err)
		}
		if err := c.AddResource(baseURL+e.Name(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", e.Name(), err)
		}
	}

	v := &Validator{schemas: make(map[Kind]*jsonschema.Schema, len(Kinds))}
	for _, kind := range Kinds {
		compiled, err := c.Compile(baseURL + string(kind) + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", kind, err)
		}
		v.schemas[kind] = compiled
	}
	return v, nil
}

// Validate checks tree against the schema of kind.
func (v *Validator) Validate(kind Kind, tree map[string]any) error {
	s, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("unknown schema kind %q", kind)
	}
	doc, err := Normalize(tree)
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s table does not match schema: %w", kind, err)
	}
	return nil
}

// ValidateDocument checks a document built in memory.
func (v *Validator) ValidateDocument(doc *table.Document) error {
	tree := doc.Tree()
	return v.Validate(KindOf(tree), tree)
}

// Normalize converts a tree built from Go values into the generic form the
// validator expects.
func Normalize(tree any) (any, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return out, nil
}

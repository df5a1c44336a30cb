package table

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
)

// Section keys.
const (
	VariableEntry = "variable_entry"
	AxisEntry     = "axis_entry"
)

// Document is one table file held in memory: a header plus named sections.
type Document struct {
	// Name is the file stem after the table prefix, e.g. "ocean" for
	// CMIP7_ocean.json.
	Name     string
	Header   Header
	Sections map[string]any
}

// Tree returns the document as a JSON object tree. Sections are shared, not
// copied.
func (d *Document) Tree() map[string]any {
	tree := make(map[string]any, len(d.Sections)+1)
	for k, v := range d.Sections {
		tree[k] = v
	}
	tree[checksum.HeaderKey] = d.Header.Fields()
	return tree
}

// Sign computes the document checksum and stores it in the header.
func (d *Document) Sign(s checksum.Signer) error {
	tree := d.Tree()
	sum, err := s.Sign(tree)
	if err != nil {
		return fmt.Errorf("failed to sign %s: %w", d.Name, err)
	}
	d.Header.Checksum = sum
	return nil
}

// Marshal encodes the document with sorted keys and four-space indentation.
func (d *Document) Marshal() ([]byte, error) {
	return Encode(d.Tree())
}

// Encode writes v as indented JSON. HTML characters are left unescaped so
// expressions such as "area: areacello" round-trip byte for byte.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a table file, keeping numbers as json.Number so that a
// decoded document hashes like the one that was written.
func Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}

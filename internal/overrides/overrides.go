// Package overrides loads version-scoped corrections to data request
// attributes and applies them to variable records before projection.
package overrides

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
)

// Kind names an override file and the single attribute it corrects.
type Kind string

// Supported override kinds.
const (
	LongName Kind = "long_name_overrides"
	Realm    Kind = "realm_overrides"
)

// Kinds lists every supported kind in application order.
var Kinds = []Kind{LongName, Realm}

// Attribute returns the data request attribute the kind replaces.
func (k Kind) Attribute() string {
	switch k {
	case LongName:
		return dreq.AttrLongName
	case Realm:
		return dreq.AttrModelingRealm
	}
	return ""
}

// Map holds the overrides of one kind, keyed by CMIP7 compound name.
type Map struct {
	Kind   Kind
	Source string
	Values map[string]string
}

// Len returns the number of overrides held.
func (m Map) Len() int {
	return len(m.Values)
}

// FileNames returns the candidate file names for a version and kind, in
// lookup order.
func FileNames(version string, kind Kind) []string {
	base := fmt.Sprintf("dr_%s_%s", version, kind)
	return []string{base + ".json", base + ".yaml", base + ".yml"}
}

// Load reads the overrides of one kind for a request version from fsys.
// A missing file yields an empty map and no error.
func Load(fsys fs.FS, version string, kind Kind) (Map, error) {
	m := Map{Kind: kind, Values: map[string]string{}}
	if kind.Attribute() == "" {
		return m, fmt.Errorf("unknown override kind %q", kind)
	}
	for _, name := range FileNames(version, kind) {
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return m, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := decode(name, data, &m.Values); err != nil {
			return m, fmt.Errorf("failed to decode %s: %w", name, err)
		}
		if m.Values == nil {
			m.Values = map[string]string{}
		}
		m.Source = name
		return m, nil
	}
	return m, nil
}

func decode(name string, data []byte, v *map[string]string) error {
	switch path.Ext(name) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

// Apply replaces the targeted attribute of v when its CMIP7 compound name has
// an override. It reports whether an override was applied. All other
// attributes are left untouched.
func Apply(v *dreq.Variable, m Map) bool {
	value, ok := m.Values[v.CMIP7CompoundName]
	if !ok {
		return false
	}
	if err := v.Set(m.Kind.Attribute(), value); err != nil {
		return false
	}
	return true
}

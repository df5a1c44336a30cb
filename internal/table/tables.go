package table

import (
	"errors"
	"fmt"
	"sort"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cellmeasures"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/mapping"
)

// UnresolvedPlaceholderError is returned when a cell-measures sentinel
// reaches a table entry.
type UnresolvedPlaceholderError struct {
	CompoundName string
	BrandedName  string
	Value        string
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("unresolved cell_measures placeholder %q for %s (%s)", e.Value, e.CompoundName, e.BrandedName)
}

// Entry is a mapped variable and the compound name it came from.
type Entry struct {
	CompoundName string
	Variable     mapping.Variable
}

// Tables groups entries by table realm and branded name.
type Tables map[string]map[string]Entry

// Add files v under its table realm. When the realm already holds the
// branded name, the entry with the greater compound name is kept. Add
// reports whether the branded name was already present.
func (t Tables) Add(compound string, v mapping.Variable) bool {
	realm := v.TableName()
	byBranded, ok := t[realm]
	if !ok {
		byBranded = map[string]Entry{}
		t[realm] = byBranded
	}
	existing, ok := byBranded[v.BrandedVariableName]
	if ok && existing.CompoundName > compound {
		return true
	}
	byBranded[v.BrandedVariableName] = Entry{CompoundName: compound, Variable: v}
	return ok
}

// Realms returns the realms in sorted order.
func (t Tables) Realms() []string {
	realms := make([]string, 0, len(t))
	for r := range t {
		realms = append(realms, r)
	}
	sort.Strings(realms)
	return realms
}

// Len returns the number of entries across all realms.
func (t Tables) Len() int {
	n := 0
	for _, byBranded := range t {
		n += len(byBranded)
	}
	return n
}

// BuildVariableTable assembles the variable table of one realm from tmpl.
// Every entry whose cell measures still hold a placeholder is reported,
// joined into one error, and no document is returned.
func BuildVariableTable(realm string, entries map[string]Entry, tmpl Header) (*Document, error) {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	body := make(map[string]any, len(entries))
	for _, name := range names {
		e := entries[name]
		if cellmeasures.IsPlaceholder(e.Variable.CellMeasures) {
			errs = append(errs, &UnresolvedPlaceholderError{
				CompoundName: e.CompoundName,
				BrandedName:  name,
				Value:        e.Variable.CellMeasures,
			})
			continue
		}
		body[name] = e.Variable.Entry()
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &Document{
		Name:     realm,
		Header:   tmpl.ForRealm(realm),
		Sections: map[string]any{VariableEntry: body},
	}, nil
}

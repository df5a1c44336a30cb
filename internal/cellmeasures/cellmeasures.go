// Package cellmeasures indexes the cell-measures expressions of a data
// request by compound name.
package cellmeasures

import (
	"sort"
	"strings"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
)

// Sentinels marking measures that must be resolved per model.
const (
	OptPlaceholder   = "::OPT"
	ModelPlaceholder = "::MODEL"
)

// SectionKey holds the measures inside the ancillary file.
const SectionKey = "cell_measures"

// IsPlaceholder reports whether an expression still carries a sentinel.
func IsPlaceholder(expr string) bool {
	return strings.Contains(expr, OptPlaceholder) || strings.Contains(expr, ModelPlaceholder)
}

// Collection is the compound name -> expression index of one request.
type Collection struct {
	Measures map[string]string
	// Placeholders lists, sorted, the compound names whose expression is a
	// sentinel. They are passed through unchanged.
	Placeholders []string
}

// Collect indexes every variable with a non-empty cell-measures expression.
func Collect(vars dreq.VariableSet) Collection {
	c := Collection{Measures: map[string]string{}}
	for _, v := range vars {
		if v.CellMeasures == "" {
			continue
		}
		c.Measures[v.CMIP7CompoundName] = v.CellMeasures
		if IsPlaceholder(v.CellMeasures) {
			c.Placeholders = append(c.Placeholders, v.CMIP7CompoundName)
		}
	}
	sort.Strings(c.Placeholders)
	return c
}

// Len returns the number of indexed expressions.
func (c Collection) Len() int {
	return len(c.Measures)
}

// Section returns the body of the ancillary file.
func (c Collection) Section() map[string]any {
	measures := make(map[string]any, len(c.Measures))
	for k, v := range c.Measures {
		measures[k] = v
	}
	return map[string]any{SectionKey: measures}
}

// Package consistency detects branded variables whose source records
// disagree on an attribute that should describe one physical quantity.
package consistency

import (
	"sort"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
)

// Tracked attributes, in report order.
var Fields = []string{
	dreq.AttrLongName,
	dreq.AttrModelingRealm,
	dreq.AttrCellMeasures,
}

// Observations maps table realm -> branded name -> compound name -> value.
type Observations map[string]map[string]map[string]string

// Observe records the value seen for one compound name.
func (o Observations) Observe(realm, branded, compound, value string) {
	byBranded, ok := o[realm]
	if !ok {
		byBranded = map[string]map[string]string{}
		o[realm] = byBranded
	}
	byCompound, ok := byBranded[branded]
	if !ok {
		byCompound = map[string]string{}
		byBranded[branded] = byCompound
	}
	byCompound[compound] = value
}

// Report holds the residual conflicts for one attribute. It has the same
// shape as Observations but only keeps branded names with two or more
// distinct values, and only realms that still have one.
type Report struct {
	Field     string
	Conflicts Observations
}

// Len returns the number of conflicting branded names.
func (r Report) Len() int {
	n := 0
	for _, byBranded := range r.Conflicts {
		n += len(byBranded)
	}
	return n
}

// Empty reports whether no conflicts were found.
func (r Report) Empty() bool {
	return r.Len() == 0
}

// Pairs lists every conflicting (realm, branded name) pair in sorted order.
func (r Report) Pairs() [][2]string {
	var pairs [][2]string
	for realm, byBranded := range r.Conflicts {
		for branded := range byBranded {
			pairs = append(pairs, [2]string{realm, branded})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

// Check collapses the observed values of every (realm, branded name) pair
// and keeps the pairs that disagree, with all of their observations. The
// input is not modified.
func Check(field string, obs Observations) Report {
	report := Report{Field: field, Conflicts: Observations{}}
	for realm, byBranded := range obs {
		for branded, byCompound := range byBranded {
			if distinct(byCompound) < 2 {
				continue
			}
			for compound, value := range byCompound {
				report.Conflicts.Observe(realm, branded, compound, value)
			}
		}
	}
	return report
}

func distinct(values map[string]string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// Tracker accumulates observations of every tracked attribute over a run.
type Tracker struct {
	obs map[string]Observations
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	t := &Tracker{obs: make(map[string]Observations, len(Fields))}
	for _, f := range Fields {
		t.obs[f] = Observations{}
	}
	return t
}

// Add observes the tracked attributes of v. Variables are grouped under
// their table realm and branded name.
func (t *Tracker) Add(v dreq.Variable) {
	realm := v.TableRealm()
	for _, f := range Fields {
		value, err := v.Get(f)
		if err != nil {
			continue
		}
		t.obs[f].Observe(realm, v.BrandedVariableName, v.CMIP7CompoundName, value.String())
	}
}

// Reports checks every tracked attribute, in Fields order.
func (t *Tracker) Reports() []Report {
	reports := make([]Report, 0, len(Fields))
	for _, f := range Fields {
		reports = append(reports, Check(f, t.obs[f]))
	}
	return reports
}

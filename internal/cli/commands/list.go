package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/output"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/engine"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

// ListOptions holds options for the list command.
type ListOptions struct {
	Realm string
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list <data_request_version>",
		Short: "List the tables a build would produce",
		Long: `Ingest and map a data request version without writing anything.

Shows the number of variables per realm table together with the conflicts,
duplicates and skipped records a build would report. With --realm, lists
the variables of one table instead.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # Realm tables of v1.2.2.1
  cmortables list v1.2.2.1

  # Variables of the ocean table as JSON
  cmortables list v1.2.2.1 --realm ocean -o json`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Realm, "realm", "", "List the variables of one realm table")

	return cmd
}

type realmSummary struct {
	Realm     string `json:"realm"`
	File      string `json:"file"`
	Variables int    `json:"variables"`
}

type variableSummary struct {
	BrandedName  string `json:"branded_name"`
	CompoundName string `json:"compound_name"`
	OutName      string `json:"out_name"`
	LongName     string `json:"long_name"`
}

type listSummary struct {
	Version      string         `json:"version"`
	Variables    int            `json:"variables"`
	Realms       []realmSummary `json:"realms"`
	CellMeasures int            `json:"cell_measures"`
	Coordinates  int            `json:"coordinates"`
	Conflicts    map[string]int `json:"conflicts"`
	Duplicates   int            `json:"duplicates"`
	Skipped      []string       `json:"skipped"`
}

func runList(cmd *cobra.Command, opts *ListOptions, version string) error {
	c := NewCommandContext(cmd)
	eng, err := c.NewEngine(version, "")
	if err != nil {
		return err
	}

	plan, err := eng.Plan(cmd.Context())
	if err != nil {
		return err
	}

	if opts.Realm != "" {
		entries, ok := plan.Tables[opts.Realm]
		if !ok {
			return &UsageError{Err: fmt.Errorf("no table for realm %q (have %v)", opts.Realm, plan.Tables.Realms())}
		}
		return listVariables(c.Renderer, opts.Realm, entries)
	}
	return listRealms(c.Renderer, summarizePlan(plan, c.Cfg.TablePrefix))
}

func summarizePlan(plan *engine.Plan, prefix string) listSummary {
	s := listSummary{
		Version:      plan.Version,
		Variables:    plan.Variables,
		Realms:       make([]realmSummary, 0, len(plan.Tables)),
		CellMeasures: plan.Measures.Len(),
		Coordinates:  len(plan.Coordinates),
		Conflicts:    map[string]int{},
		Duplicates:   plan.Duplicates,
		Skipped:      plan.Skipped,
	}
	if s.Skipped == nil {
		s.Skipped = []string{}
	}
	for _, realm := range plan.Tables.Realms() {
		s.Realms = append(s.Realms, realmSummary{
			Realm:     realm,
			File:      table.FileName(prefix, realm),
			Variables: len(plan.Tables[realm]),
		})
	}
	for _, report := range plan.Reports {
		s.Conflicts[report.Field] = report.Len()
	}
	return s
}

func listRealms(r *output.Renderer, s listSummary) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(s)
	}

	r.Println()
	r.Header(fmt.Sprintf("Realm tables for %s (%d variables)", s.Version, s.Variables))
	rows := make([][]string, 0, len(s.Realms))
	for _, realm := range s.Realms {
		rows = append(rows, []string{realm.Realm, realm.File, strconv.Itoa(realm.Variables)})
	}
	r.Table([]string{"Realm", "File", "Variables"}, rows)

	fields := make([]string, 0, len(s.Conflicts))
	for field := range s.Conflicts {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if n := s.Conflicts[field]; n > 0 {
			r.Warn("%d branded names with conflicting %s", n, field)
		}
	}
	if s.Duplicates > 0 {
		r.Println(r.Muted(fmt.Sprintf("%d duplicate records collapsed", s.Duplicates)))
	}
	if len(s.Skipped) > 0 {
		r.Println(r.Muted(fmt.Sprintf("%d records without a modeling realm skipped", len(s.Skipped))))
	}
	r.Println(r.Muted(fmt.Sprintf("%d cell measures, %d coordinates", s.CellMeasures, s.Coordinates)))
	return nil
}

func listVariables(r *output.Renderer, realm string, entries map[string]table.Entry) error {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]variableSummary, 0, len(names))
	for _, name := range names {
		e := entries[name]
		vars = append(vars, variableSummary{
			BrandedName:  name,
			CompoundName: e.CompoundName,
			OutName:      e.Variable.OutName,
			LongName:     e.Variable.LongName,
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(vars)
	}

	r.Println()
	r.Header(fmt.Sprintf("%s (%d variables)", realm, len(vars)))
	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		rows = append(rows, []string{v.BrandedName, v.CompoundName, v.OutName, v.LongName})
	}
	r.Table([]string{"Branded name", "Compound name", "out_name", "long_name"}, rows)
	return nil
}

package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/output"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/engine"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <data_request_version> <output_dir>",
		Short: "Build the CMOR tables of a data request version",
		Long: `Build every CMOR table of a data request version.

Variables are read from <data_request_dir>/<version>/, grouped by modeling
realm and written to <output_dir>/<prefix>_<realm>.json together with the
coordinate, formula_terms, grids, long_name_overrides and cell_measures
tables. Every table carries an md5 checksum in its Header.

Nothing is written when a table cannot be built. Conflicting long names,
realms or cell measures are reported as warnings and written to
<report_dir>/<field>.json.`,
		Example: `  # Build the tables of v1.2.2.1 into ./tables
  cmortables build v1.2.2.1 tables

  # Use a local copy of the reference tables
  cmortables build v1.2.2.1 tables --reference_file_path ../cmip6-cmor-tables/Tables

  # Blank comments and cell measures, machine readable summary
  cmortables build v1.2.2.1 tables --blank-comments --blank-cell-measures -o json`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args[0], args[1])
		},
	}

	cmd.Flags().Bool("blank-comments", false, "Empty every variable comment")
	cmd.Flags().Bool("blank-cell-measures", false, "Empty every variable cell_measures after collecting them")
	cmd.Flags().Bool("validate-output", true, "Validate every table against its JSON schema before writing")
	cmd.Flags().String("report-dir", "", "Directory for conflict reports (default: output_dir)")

	return cmd
}

// buildSummary is the JSON form of a completed build.
type buildSummary struct {
	RunID       string         `json:"run_id"`
	Version     string         `json:"version"`
	OutputDir   string         `json:"output_dir"`
	Files       []fileSummary  `json:"files"`
	Conflicts   map[string]int `json:"conflicts"`
	Skipped     []string       `json:"skipped"`
	Duplicates  int            `json:"duplicates"`
	ReportFiles []string       `json:"report_files"`
	DurationMS  int64          `json:"duration_ms"`
}

type fileSummary struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Entries  int    `json:"entries"`
}

func runBuild(cmd *cobra.Command, version, outputDir string) error {
	c := NewCommandContext(cmd)
	eng, err := c.NewEngine(version, outputDir)
	if err != nil {
		return err
	}

	result, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}

	summary := summarize(result)
	r := c.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(summary)
	}

	r.Println()
	r.Header(fmt.Sprintf("Tables for %s", result.Version))
	rows := make([][]string, 0, len(summary.Files))
	for _, f := range summary.Files {
		entries := ""
		if f.Entries > 0 {
			entries = strconv.Itoa(f.Entries)
		}
		rows = append(rows, []string{f.Name, entries, f.Checksum})
	}
	r.Table([]string{"File", "Variables", "Checksum"}, rows)

	r.Success(fmt.Sprintf("Wrote %d tables to %s in %s", len(result.Files), result.OutputDir, result.Duration.Round(time.Millisecond)))
	r.Println(r.Muted("run " + result.RunID))
	return nil
}

func summarize(result *engine.Result) buildSummary {
	s := buildSummary{
		RunID:       result.RunID,
		Version:     result.Version,
		OutputDir:   result.OutputDir,
		Files:       make([]fileSummary, 0, len(result.Files)),
		Conflicts:   map[string]int{},
		Skipped:     result.Plan.Skipped,
		Duplicates:  result.Plan.Duplicates,
		ReportFiles: result.ReportFiles,
		DurationMS:  result.Duration.Milliseconds(),
	}
	if s.Skipped == nil {
		s.Skipped = []string{}
	}
	if s.ReportFiles == nil {
		s.ReportFiles = []string{}
	}
	for _, f := range result.Files {
		s.Files = append(s.Files, fileSummary{Name: f.Name, Path: f.Path, Checksum: f.Checksum, Entries: f.Entries})
	}
	for _, report := range result.Plan.Reports {
		s.Conflicts[report.Field] = report.Len()
	}
	return s
}

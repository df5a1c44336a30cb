package commands

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/ancil"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/config"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/output"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/overrides"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/reference"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/schema"
)

// Check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the inputs of a build are in place",
		Long: `Inspect the configuration, the data request exports, the reference
tables and the table schemas without building anything.

The report lists every check grouped by category, a health score (0-100)
and recommendations for whatever failed.`,
		Example: `  # Check the project in the current directory
  cmortables doctor

  # Machine-readable report
  cmortables doctor -o json`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         InputSummary  `json:"summary"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
}

// InputSummary describes where the build inputs come from.
type InputSummary struct {
	ConfigFile     string   `json:"config_file"`
	DataRequestDir string   `json:"data_request_dir"`
	ReferenceDir   string   `json:"reference_dir"`
	Versions       []string `json:"versions"`
}

// HealthCheck is the outcome of one check.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"`
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	out := diagnose(cmd.Context(), cmdCtx.Cfg, config.GetConfigFileUsed())

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

// diagnose runs every check against cfg.
func diagnose(ctx context.Context, cfg *config.Config, configFile string) *DoctorOutput {
	out := &DoctorOutput{
		Summary: InputSummary{
			ConfigFile:     configFile,
			DataRequestDir: cfg.DataRequestDir,
			ReferenceDir:   cfg.ReferenceFilePath,
			Versions:       []string{},
		},
	}
	if out.Summary.ReferenceDir == "" {
		out.Summary.ReferenceDir = "(bundled)"
	}

	var refFS fs.FS = reference.FS()
	if cfg.ReferenceFilePath != "" {
		refFS = os.DirFS(cfg.ReferenceFilePath)
	}

	configCheck := HealthCheck{RuleID: "CF01", Name: "Config file", Group: "configuration", Status: StatusPass}
	if configFile == "" {
		configCheck.Status = StatusWarn
		configCheck.IssueCount = 1
		configCheck.Details = []string{"no cmortables.yaml found, using defaults"}
	}
	out.HealthChecks = append(out.HealthChecks, configCheck)

	versions, dirCheck := checkDataRequestDir(cfg.DataRequestDir)
	out.Summary.Versions = versions
	out.HealthChecks = append(out.HealthChecks, dirCheck)
	if dirCheck.Status != StatusError {
		out.HealthChecks = append(out.HealthChecks, checkExports(ctx, cfg.DataRequestDir, versions))
	}
	out.HealthChecks = append(out.HealthChecks, checkReference(refFS))
	if dirCheck.Status != StatusError {
		out.HealthChecks = append(out.HealthChecks, checkOverrides(refFS, versions))
	}
	out.HealthChecks = append(out.HealthChecks, checkSchemas())

	out.Score = calculateHealthScore(out.HealthChecks)
	out.Recommendations = generateRecommendations(out.HealthChecks)
	return out
}

// checkDataRequestDir lists the version directories of the export root.
func checkDataRequestDir(dir string) ([]string, HealthCheck) {
	check := HealthCheck{RuleID: "DR01", Name: "Data request directory", Group: "data request", Status: StatusPass}

	entries, err := os.ReadDir(dir)
	if err != nil {
		check.Status = StatusError
		check.IssueCount = 1
		check.Details = []string{err.Error()}
		return []string{}, check
	}

	versions := []string{}
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	sort.Strings(versions)

	if len(versions) == 0 {
		check.Status = StatusWarn
		check.IssueCount = 1
		check.Details = []string{fmt.Sprintf("no version directories in %s", dir)}
	}
	return versions, check
}

// checkExports loads the variables and coordinates of every version.
func checkExports(ctx context.Context, dir string, versions []string) HealthCheck {
	check := HealthCheck{RuleID: "DR02", Name: "Data request exports", Group: "data request", Status: StatusPass}
	src := dreq.NewFileSource(dir)

	for _, version := range versions {
		missing := false
		for _, name := range []string{dreq.VariablesFile, dreq.CoordinatesFile} {
			if _, err := os.Stat(filepath.Join(dir, version, name)); err != nil {
				check.Details = append(check.Details, fmt.Sprintf("%s: %s is missing", version, name))
				missing = true
			}
		}
		if missing {
			continue
		}
		if _, err := src.Variables(ctx, version); err != nil {
			check.Details = append(check.Details, fmt.Sprintf("%s: %v", version, err))
		}
		if _, err := src.Coordinates(ctx, version); err != nil {
			check.Details = append(check.Details, fmt.Sprintf("%s: %v", version, err))
		}
	}

	if len(check.Details) > 0 {
		check.Status = StatusError
		check.IssueCount = len(check.Details)
	}
	return check
}

// checkOverrides parses the override files of every version.
func checkOverrides(refFS fs.FS, versions []string) HealthCheck {
	check := HealthCheck{RuleID: "RF02", Name: "Override files", Group: "reference", Status: StatusPass}
	for _, version := range versions {
		for _, kind := range overrides.Kinds {
			if _, err := overrides.Load(refFS, version, kind); err != nil {
				check.Details = append(check.Details, fmt.Sprintf("%s: %v", version, err))
			}
		}
	}
	if len(check.Details) > 0 {
		check.Status = StatusError
		check.IssueCount = len(check.Details)
	}
	return check
}

// checkReference loads every reference table.
func checkReference(refFS fs.FS) HealthCheck {
	check := HealthCheck{RuleID: "RF01", Name: "Reference tables", Group: "reference", Status: StatusPass}
	for _, name := range ancil.ReferenceFiles {
		if _, err := ancil.LoadReference(refFS, name); err != nil {
			check.Details = append(check.Details, err.Error())
		}
	}
	if len(check.Details) > 0 {
		check.Status = StatusError
		check.IssueCount = len(check.Details)
	}
	return check
}

func checkSchemas() HealthCheck {
	check := HealthCheck{RuleID: "SC01", Name: "Table schemas", Group: "schema", Status: StatusPass}
	if _, err := schema.NewValidator(); err != nil {
		check.Status = StatusError
		check.IssueCount = 1
		check.Details = []string{err.Error()}
	}
	return check
}

// calculateHealthScore computes a 0-100 score. Each warning costs 10 points
// and each error 25.
func calculateHealthScore(checks []HealthCheck) int {
	score := 100
	for _, check := range checks {
		switch check.Status {
		case StatusError:
			score -= check.IssueCount * 25
		case StatusWarn:
			score -= check.IssueCount * 10
		}
	}
	return max(score, 0)
}

// generateRecommendations returns one recommendation per failing rule.
func generateRecommendations(checks []HealthCheck) []string {
	recommendations := []string{}
	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		if rec := getRecommendation(check.RuleID); rec != "" {
			recommendations = append(recommendations, rec)
		}
	}
	return recommendations
}

func getRecommendation(ruleID string) string {
	switch ruleID {
	case "CF01":
		return "Create a cmortables.yaml at the project root to pin table_date and the header"
	case "DR01":
		return "Point --data-request-dir at the directory holding one folder per data request version"
	case "DR02":
		return "Re-export variables.json and coordinates.json for the listed versions"
	case "RF01":
		return "Restore the MIP_*.json reference tables or drop --reference_file_path to use the bundled copy"
	case "RF02":
		return "Fix the listed override files; each must map compound names to strings"
	case "SC01":
		return "Rebuild cmortables; the embedded table schemas do not compile"
	default:
		return ""
	}
}

func statusLabel(status string) string {
	switch status {
	case StatusWarn:
		return "WARN"
	case StatusError:
		return "ERROR"
	}
	return "PASS"
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println(styles.Header.Render("cmortables health report"))
	r.Println(r.Muted(strings.Repeat("=", 55)))
	r.Printf("   Config:       %s\n", orNone(out.Summary.ConfigFile))
	r.Printf("   Data request: %s (%d versions)\n", out.Summary.DataRequestDir, len(out.Summary.Versions))
	r.Printf("   Reference:    %s\n", out.Summary.ReferenceDir)
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(r.Muted("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case StatusWarn:
			icon = styles.Warning.Render("!")
		case StatusError:
			icon = styles.Error.Render("✗")
		}
		line := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			line += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + line)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(r.Muted(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(r.Muted("       - " + detail))
		}
	}
	r.Println("")

	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))

	if len(out.Recommendations) > 0 {
		r.Println("")
		r.Println(styles.Bold.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# cmortables health report")
	r.Println("")
	r.Printf("- **Config**: %s\n", orNone(out.Summary.ConfigFile))
	r.Printf("- **Data request**: %s\n", out.Summary.DataRequestDir)
	r.Printf("- **Versions**: %s\n", orNone(strings.Join(out.Summary.Versions, ", ")))
	r.Printf("- **Reference**: %s\n", out.Summary.ReferenceDir)
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}
		r.Printf("- **[%s]** %s: %s", statusLabel(check.Status), check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)

	if len(out.Recommendations) > 0 {
		r.Println("")
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/config"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/testutil"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		want   int
	}{
		{name: "no checks returns 100", checks: nil, want: 100},
		{
			name: "all passing returns 100",
			checks: []HealthCheck{
				{RuleID: "CF01", Status: StatusPass},
				{RuleID: "DR01", Status: StatusPass},
			},
			want: 100,
		},
		{
			name:   "warnings cost 10",
			checks: []HealthCheck{{RuleID: "CF01", Status: StatusWarn, IssueCount: 2}},
			want:   80,
		},
		{
			name:   "errors cost 25",
			checks: []HealthCheck{{RuleID: "RF01", Status: StatusError, IssueCount: 1}},
			want:   75,
		},
		{
			name: "clamped at 0",
			checks: []HealthCheck{
				{RuleID: "RF01", Status: StatusError, IssueCount: 4},
				{RuleID: "DR02", Status: StatusError, IssueCount: 2},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks))
		})
	}
}

func TestGenerateRecommendations(t *testing.T) {
	recs := generateRecommendations([]HealthCheck{
		{RuleID: "CF01", Status: StatusWarn, IssueCount: 1},
		{RuleID: "DR01", Status: StatusPass},
		{RuleID: "RF01", Status: StatusError, IssueCount: 2},
	})
	require.Len(t, recs, 2)
	assert.Contains(t, recs[0], "cmortables.yaml")
	assert.Contains(t, recs[1], "reference tables")

	assert.Empty(t, generateRecommendations(nil))
}

func checksByRule(out *DoctorOutput) map[string]HealthCheck {
	m := map[string]HealthCheck{}
	for _, c := range out.HealthChecks {
		m[c.RuleID] = c
	}
	return m
}

func TestDiagnoseHealthyProject(t *testing.T) {
	project := testutil.SetupProject(t)
	cfg := &config.Config{DataRequestDir: filepath.Join(project, "data_request")}

	out := diagnose(context.Background(), cfg, filepath.Join(project, "cmortables.yaml"))

	assert.Equal(t, []string{testutil.FixtureVersion}, out.Summary.Versions)
	assert.Equal(t, "(bundled)", out.Summary.ReferenceDir)
	for _, c := range out.HealthChecks {
		assert.Equal(t, StatusPass, c.Status, "%s: %v", c.RuleID, c.Details)
	}
	assert.Len(t, out.HealthChecks, 6)
	assert.Equal(t, 100, out.Score)
	assert.Empty(t, out.Recommendations)
}

func TestDiagnoseBrokenInputs(t *testing.T) {
	project := testutil.SetupProject(t)
	dreqDir := filepath.Join(project, "data_request")
	require.NoError(t, os.Remove(filepath.Join(dreqDir, testutil.FixtureVersion, "coordinates.json")))

	cfg := &config.Config{DataRequestDir: dreqDir, ReferenceFilePath: t.TempDir()}
	out := diagnose(context.Background(), cfg, "")
	checks := checksByRule(out)

	assert.Equal(t, StatusWarn, checks["CF01"].Status)
	assert.Equal(t, StatusPass, checks["DR01"].Status)
	assert.Equal(t, StatusError, checks["DR02"].Status)
	assert.Equal(t, []string{"v1.2.2.1: coordinates.json is missing"}, checks["DR02"].Details)
	assert.Equal(t, StatusError, checks["RF01"].Status)
	assert.Equal(t, 4, checks["RF01"].IssueCount)
	assert.Equal(t, StatusPass, checks["RF02"].Status)
	assert.Equal(t, 0, out.Score)
	assert.Len(t, out.Recommendations, 3)
}

func TestDiagnoseMissingDataRequestDir(t *testing.T) {
	cfg := &config.Config{DataRequestDir: filepath.Join(t.TempDir(), "absent")}
	out := diagnose(context.Background(), cfg, "cmortables.yaml")
	checks := checksByRule(out)

	assert.Equal(t, StatusError, checks["DR01"].Status)
	assert.NotContains(t, checks, "DR02")
	assert.NotContains(t, checks, "RF02")
	assert.Equal(t, StatusPass, checks["RF01"].Status)
	assert.Equal(t, []string{}, out.Summary.Versions)
}

func TestRunDoctorOutput(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		cmd, tr := commandWithProject(t, "markdown")
		require.NoError(t, runDoctor(cmd))
		assert.Contains(t, tr.Output(), "# cmortables health report")
		assert.Contains(t, tr.Output(), "### Data Request")
		assert.Contains(t, tr.Output(), "- **[PASS]** RF01: Reference tables")
		assert.Contains(t, tr.Output(), "**100/100**")
		testutil.AssertNoANSI(t, tr.Output())
	})

	t.Run("json", func(t *testing.T) {
		cmd, tr := commandWithProject(t, "json")
		require.NoError(t, runDoctor(cmd))
		var out DoctorOutput
		require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &out))
		assert.Equal(t, []string{testutil.FixtureVersion}, out.Summary.Versions)
		assert.NotEmpty(t, out.HealthChecks)
	})
}

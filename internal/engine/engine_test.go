package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/ancil"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/overrides"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/testutil"
)

var tableDate = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

type recordingProgress struct {
	steps []string
	warns []string
}

func (p *recordingProgress) Step(format string, _ ...any) { p.steps = append(p.steps, format) }
func (p *recordingProgress) Warn(format string, _ ...any) { p.warns = append(p.warns, format) }

func variable(compound, branded, realm string) dreq.Variable {
	return dreq.Variable{
		CMIP7CompoundName:   compound,
		BrandedVariableName: branded,
		ModelingRealm:       realm,
		LongName:            "Long " + branded,
		OutName:             "out",
		Units:               "1",
		Dimensions:          "longitude latitude time",
	}
}

func source(vars ...dreq.Variable) dreq.StaticSource {
	set := dreq.VariableSet{}
	for _, v := range vars {
		set[v.CMIP7CompoundName] = v
	}
	return dreq.StaticSource{
		Vars: set,
		Coords: []dreq.Coordinate{
			{ID: "c1", Name: "height2m", Attrs: dreq.Attrs{"axis_flag": "Z", "value_scalar_or_string": "2.0", "units": "m"}},
		},
	}
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Version == "" {
		cfg.Version = "v1.2.2.1"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = t.TempDir()
	}
	if cfg.TableDate.IsZero() {
		cfg.TableDate = tableDate
	}
	cfg.Logger = testutil.NewTestLogger(t)
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "missing version", cfg: Config{Source: dreq.StaticSource{}}, wantErr: "version"},
		{name: "missing source", cfg: Config{Version: "v1"}, wantErr: "source"},
		{name: "bad canonical", cfg: Config{Version: "v1", Source: dreq.StaticSource{}, Canonical: "xml"}, wantErr: "canonical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	e, err := New(Config{Version: "v1", Source: dreq.StaticSource{}, OutputDir: "out"})
	require.NoError(t, err)
	assert.Equal(t, "CMIP7", e.prefix)
	assert.Equal(t, "out", e.reportDir)
	assert.Equal(t, checksum.Python, e.signer.Canonical)
	assert.Nil(t, e.validator)
	assert.Equal(t, "v1", e.Version())
}

func TestPlanOverrides(t *testing.T) {
	ref := testutil.ReferenceFS(t, map[string][]byte{
		"dr_v1.2.2.1_long_name_overrides.json": []byte(`{"atmos.tas.mon": "Near-Surface Air Temperature"}`),
		"dr_v1.2.2.1_realm_overrides.json":     []byte(`{"ocean.siconc.mon": "seaIce ocean", "atmos.absent.mon": "land"}`),
	})
	e := newEngine(t, Config{
		Source: source(
			variable("atmos.tas.mon", "tas_tavg-h2m-hxy-u", "atmos"),
			variable("ocean.siconc.mon", "siconc_tavg-u-hxy-u", "ocean"),
		),
		Reference: ref,
	})

	plan, err := e.Plan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, plan.Overridden[overrides.LongName])
	assert.Equal(t, 1, plan.Overridden[overrides.Realm])
	assert.Equal(t, []string{"atmos", "seaIce"}, plan.Tables.Realms())

	tas := plan.Tables["atmos"]["tas_tavg-h2m-hxy-u"].Variable
	assert.Equal(t, "Near-Surface Air Temperature", tas.LongName)
	siconc := plan.Tables["seaIce"]["siconc_tavg-u-hxy-u"].Variable
	assert.Equal(t, "seaIce ocean", siconc.ModelingRealm)
	assert.Equal(t, "Long siconc_tavg-u-hxy-u", siconc.LongName)
}

func TestPlanSkipsVariablesWithoutRealm(t *testing.T) {
	progress := &recordingProgress{}
	e := newEngine(t, Config{
		Source:   source(variable("x.none.mon", "none_tavg", ""), variable("atmos.tas.mon", "tas", "atmos")),
		Progress: progress,
	})

	plan, err := e.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x.none.mon"}, plan.Skipped)
	assert.Equal(t, 1, plan.Tables.Len())
	assert.Equal(t, 2, plan.Variables)
	assert.NotEmpty(t, progress.warns)
}

func TestPlanDuplicates(t *testing.T) {
	a := variable("ocean.tos.day", "tos_tavg-u-hxy-sea", "ocean")
	b := variable("ocean.tos.mon", "tos_tavg-u-hxy-sea", "ocean")
	b.Comment = "monthly"
	e := newEngine(t, Config{Source: source(a, b)})

	plan, err := e.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Duplicates)
	entry := plan.Tables["ocean"]["tos_tavg-u-hxy-sea"]
	assert.Equal(t, "ocean.tos.mon", entry.CompoundName)
	assert.Equal(t, "monthly", entry.Variable.Comment)
}

func TestPlanBlanking(t *testing.T) {
	v := variable("ocean.tos.mon", "tos", "ocean")
	v.Comment = "a comment"
	v.CellMeasures = "::MODEL"
	progress := &recordingProgress{}
	e := newEngine(t, Config{
		Source:            source(v),
		BlankComments:     true,
		BlankCellMeasures: true,
		Progress:          progress,
	})

	plan, err := e.Plan(context.Background())
	require.NoError(t, err)
	entry := plan.Tables["ocean"]["tos"].Variable
	assert.Empty(t, entry.Comment)
	assert.Empty(t, entry.CellMeasures)
	assert.Equal(t, "::MODEL", plan.Measures.Measures["ocean.tos.mon"], "measures are collected before blanking")
	assert.Len(t, progress.warns, 2)
}

func TestPlanVersionNotFound(t *testing.T) {
	e := newEngine(t, Config{Source: dreq.NewFileSource(t.TempDir()), Version: "v9"})
	_, err := e.Plan(context.Background())
	assert.ErrorIs(t, err, dreq.ErrVersionNotFound)
}

func TestRunWritesConflictReports(t *testing.T) {
	a := variable("atmos.tas.mon", "tas", "atmos")
	b := variable("atmos.tas.day", "tas", "atmos")
	b.LongName = "Near Surface Air Temperature"
	reportDir := filepath.Join(t.TempDir(), "reports")

	e := newEngine(t, Config{Source: source(a, b), ReportDir: reportDir})
	result, err := e.Run(context.Background())
	require.NoError(t, err, "conflicts are advisory")

	require.Equal(t, []string{filepath.Join(reportDir, "long_name.json")}, result.ReportFiles)
	data, err := os.ReadFile(result.ReportFiles[0])
	require.NoError(t, err)

	var report map[string]map[string]map[string]string
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, map[string]map[string]map[string]string{
		"atmos": {"tas": {
			"atmos.tas.mon": "Long tas",
			"atmos.tas.day": "Near Surface Air Temperature",
		}},
	}, report)
	assert.Equal(t, 1, result.Plan.Conflicts())
}

func TestRunMissingReference(t *testing.T) {
	out := t.TempDir()
	e := newEngine(t, Config{
		Source:    source(variable("atmos.tas.mon", "tas", "atmos")),
		Reference: testutil.ReferenceFS(t, map[string][]byte{"MIP_grids.json": nil}),
		OutputDir: out,
	})

	_, err := e.Run(context.Background())
	var missing *ancil.MissingReferenceEntryError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "MIP_grids.json", missing.File)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written when a reference is missing")
}

func TestRunMissingOutNameDegradesToEmpty(t *testing.T) {
	v := variable("ocean.tos.mon", "tos_x", "ocean")
	v.OutName = ""
	e := newEngine(t, Config{Source: source(v), ValidateOutput: true})

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(result.OutputDir, table.FileName("CMIP7", "ocean")))
	require.NoError(t, err)
	tree, err := table.Decode(data)
	require.NoError(t, err)
	entry := tree["variable_entry"].(map[string]any)["tos_x"].(map[string]any)
	assert.Equal(t, "", entry["out_name"])
	assert.Contains(t, string(data), `"out_name": ""`)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newEngine(t, Config{Source: source(variable("atmos.tas.mon", "tas", "atmos"))})
	_, err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifier(t *testing.T) {
	e := newEngine(t, Config{
		Source:         source(variable("atmos.tas.mon", "tas", "atmos")),
		ValidateOutput: true,
	})
	result, err := e.Run(context.Background())
	require.NoError(t, err)

	paths := make([]string, 0, len(result.Files))
	for _, f := range result.Files {
		paths = append(paths, f.Path)
	}

	v := Verifier{Signer: checksum.Signer{}, Validator: e.validator}
	for _, c := range v.VerifyFiles(paths) {
		assert.True(t, c.OK(), "%s: %v", c.Path, c.Err)
		assert.NotEmpty(t, c.Checksum)
	}

	atmos := filepath.Join(result.OutputDir, table.FileName("CMIP7", "atmos"))
	data, err := os.ReadFile(atmos)
	require.NoError(t, err)
	tree, err := table.Decode(data)
	require.NoError(t, err)
	tree["variable_entry"].(map[string]any)["tas"].(map[string]any)["units"] = "K"
	require.NoError(t, table.WriteJSON(atmos, tree))

	c := v.VerifyFile(atmos)
	var mismatch *checksum.MismatchError
	require.True(t, errors.As(c.Err, &mismatch))
	assert.Equal(t, c.Checksum, mismatch.Stored)

	c = v.VerifyFile(filepath.Join(result.OutputDir, "absent.json"))
	assert.False(t, c.OK())
}

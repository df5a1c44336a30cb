package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

func tosRecord(compound string) dreq.Variable {
	return dreq.Variable{
		BrandedVariableName: "tos_tavg-u-hxy-sea",
		CMIP7CompoundName:   compound,
		CellMeasures:        "area: areacello",
		CellMethods:         "area: mean where sea time: mean",
		Dimensions:          "longitude latitude time",
		LongName:            "Sea Surface Temperature",
		ModelingRealm:       "ocean",
		OutName:             "tos",
		StandardName:        "sea_surface_temperature",
		Units:               "degC",
	}
}

func readTable(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tree, err := table.Decode(data)
	require.NoError(t, err)
	return tree
}

func TestScenarioSeaSurfaceTemperature(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tables")
	e := newEngine(t, Config{
		Source: source(
			tosRecord("ocean.tos.tavg.u.hxy.sea.day.glb"),
			tosRecord("ocean.tos.tavg.u.hxy.sea.mon.glb"),
		),
		OutputDir:      out,
		ValidateOutput: true,
	})

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Plan.Reports, 3)
	for _, r := range result.Plan.Reports {
		assert.True(t, r.Empty(), "no %s conflicts", r.Field)
	}
	assert.Empty(t, result.ReportFiles)
	assert.NotEmpty(t, result.RunID)

	var names []string
	for _, f := range result.Files {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"CMIP7_cell_measures.json",
		"CMIP7_coordinate.json",
		"CMIP7_formula_terms.json",
		"CMIP7_grids.json",
		"CMIP7_long_name_overrides.json",
		"CMIP7_ocean.json",
	}, names)

	ocean := readTable(t, filepath.Join(out, "CMIP7_ocean.json"))
	require.NoError(t, checksum.Verify(ocean))

	body := ocean["variable_entry"].(map[string]any)
	require.Len(t, body, 1)
	tos := body["tos_tavg-u-hxy-sea"].(map[string]any)
	assert.Equal(t, "area: areacello", tos["cell_measures"])
	assert.Equal(t, []any{"longitude", "latitude", "time"}, tos["dimensions"])

	header := ocean["Header"].(map[string]any)
	assert.Equal(t, "ocean", header["table_id"])
	assert.Equal(t, "olevel olevhalf", header["generic_levels"])
	assert.Equal(t, "2025-06-30 12:00:00", header["table_date"])

	measures := readTable(t, filepath.Join(out, "CMIP7_cell_measures.json"))
	assert.Equal(t, map[string]any{
		"ocean.tos.tavg.u.hxy.sea.day.glb": "area: areacello",
		"ocean.tos.tavg.u.hxy.sea.mon.glb": "area: areacello",
	}, measures["cell_measures"])

	for _, f := range result.Files {
		if f.Name == "CMIP7_ocean.json" {
			assert.Equal(t, 1, f.Entries)
		}
		assert.Equal(t, f.Checksum, readTable(t, f.Path)["Header"].(map[string]any)["checksum"])
	}
}

func TestScenarioPlaceholderAborts(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tables")
	opt := tosRecord("ocean.tos.tavg.u.hxy.sea.mon.glb")
	opt.CellMeasures = "::OPT"
	tas := variable("atmos.tas.mon", "tas", "atmos")
	tas.CellMeasures = "area: areacella"

	e := newEngine(t, Config{Source: source(opt, tas), OutputDir: out})
	_, err := e.Run(context.Background())

	var placeholder *table.UnresolvedPlaceholderError
	require.True(t, errors.As(err, &placeholder))
	assert.Equal(t, "ocean.tos.tavg.u.hxy.sea.mon.glb", placeholder.CompoundName)
	assert.Equal(t, "::OPT", placeholder.Value)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no table file is left on disk")
}

func TestScenarioPlaceholderBlanked(t *testing.T) {
	out := t.TempDir()
	opt := tosRecord("ocean.tos.tavg.u.hxy.sea.mon.glb")
	opt.CellMeasures = "::OPT"

	e := newEngine(t, Config{Source: source(opt), OutputDir: out, BlankCellMeasures: true})
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	ocean := readTable(t, filepath.Join(out, "CMIP7_ocean.json"))
	tos := ocean["variable_entry"].(map[string]any)["tos_tavg-u-hxy-sea"].(map[string]any)
	assert.Equal(t, "", tos["cell_measures"])

	measures := readTable(t, filepath.Join(out, "CMIP7_cell_measures.json"))
	assert.Equal(t, "::OPT", measures["cell_measures"].(map[string]any)["ocean.tos.tavg.u.hxy.sea.mon.glb"])
}

func runFiles(t *testing.T, src dreq.Source) map[string][]byte {
	t.Helper()
	out := t.TempDir()
	e := newEngine(t, Config{Source: src, OutputDir: out})
	result, err := e.Run(context.Background())
	require.NoError(t, err)

	files := map[string][]byte{}
	for _, f := range result.Files {
		data, err := os.ReadFile(f.Path)
		require.NoError(t, err)
		files[f.Name] = data
	}
	return files
}

func TestScenarioDeterministic(t *testing.T) {
	records := []dreq.Variable{
		tosRecord("ocean.tos.tavg.u.hxy.sea.day.glb"),
		tosRecord("ocean.tos.tavg.u.hxy.sea.mon.glb"),
		variable("atmos.tas.mon", "tas", "atmos"),
		variable("atmos.pr.mon", "pr", "atmos"),
		variable("land.mrso.mon", "mrso", "land"),
		variable("seaIce.siconc.mon", "siconc", "seaIce ocean"),
	}
	want := runFiles(t, source(records...))

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10
	properties := gopter.NewProperties(parameters)

	properties.Property("reordered input yields byte-identical tables", prop.ForAll(
		func(seed []int) bool {
			shuffled := append([]dreq.Variable(nil), records...)
			for i := len(shuffled) - 1; i > 0; i-- {
				j := seed[i] % (i + 1)
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			}
			got := runFiles(t, source(shuffled...))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Logf("tables differ (-want +got):\n%s", diff)
				return false
			}
			return true
		},
		gen.SliceOfN(len(records), gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}

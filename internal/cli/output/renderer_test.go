package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTest(mode OutputMode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestMode(t *testing.T) {
	tests := map[string]OutputMode{
		"":         ModeAuto,
		"auto":     ModeAuto,
		"text":     ModeText,
		"TEXT":     ModeText,
		"markdown": ModeMarkdown,
		"json":     ModeJSON,
		"yaml":     ModeAuto,
	}
	for in, want := range tests {
		assert.Equal(t, want, Mode(in), in)
	}

	assert.True(t, Valid(""))
	assert.True(t, Valid("json"))
	assert.False(t, Valid("yaml"))
}

func TestEffectiveMode(t *testing.T) {
	r, _, _ := newTest(ModeAuto, true)
	assert.Equal(t, ModeText, r.EffectiveMode())

	r, _, _ = newTest(ModeAuto, false)
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())

	r, _, _ = newTest(ModeJSON, true)
	assert.Equal(t, ModeJSON, r.EffectiveMode())
}

func TestTable(t *testing.T) {
	rows := [][]string{{"ocean", "12"}, {"atmos", "40"}}

	r, out, _ := newTest(ModeMarkdown, false)
	r.Table([]string{"Realm", "Entries"}, rows)
	assert.Contains(t, out.String(), "| Realm | Entries |")
	assert.Contains(t, out.String(), "| ocean | 12 |")

	r, out, _ = newTest(ModeText, false)
	r.Table([]string{"Realm", "Entries"}, rows)
	assert.Contains(t, out.String(), "┌")
	assert.Contains(t, out.String(), "atmos")
}

func TestProgressInJSONModeGoesToStderr(t *testing.T) {
	r, out, errOut := newTest(ModeJSON, false)
	r.Step("Loading Data Request version %q", "v1.2.2.1")
	r.Warn("%d conflicts", 2)
	require.NoError(t, r.JSON(map[string]int{"files": 6}))

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 6, decoded["files"])
	assert.Contains(t, errOut.String(), `Loading Data Request version "v1.2.2.1"`)
	assert.Contains(t, errOut.String(), "WARNING: 2 conflicts")
}

func TestPlainOutputHasNoANSI(t *testing.T) {
	r, out, errOut := newTest(ModeMarkdown, false)
	r.Header("Tables")
	r.Warn("careful")
	r.StatusLine("CMIP7_ocean.json", false, "checksum mismatch")
	r.Error("boom")

	combined := out.String() + errOut.String()
	assert.NotContains(t, combined, "\x1b[")
	assert.Contains(t, combined, "## Tables")
	assert.Contains(t, combined, "FAILED")
}

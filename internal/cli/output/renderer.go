// Package output renders command output as styled text, markdown or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// OutputMode selects how commands render.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"
	ModeText     OutputMode = "text"
	ModeMarkdown OutputMode = "markdown"
	ModeJSON     OutputMode = "json"
)

// Modes lists every accepted mode.
var Modes = []OutputMode{ModeAuto, ModeText, ModeMarkdown, ModeJSON}

// Mode converts a configured value to a mode. Unknown and empty values
// select ModeAuto.
func Mode(s string) OutputMode {
	switch OutputMode(strings.ToLower(s)) {
	case ModeText:
		return ModeText
	case ModeMarkdown:
		return ModeMarkdown
	case ModeJSON:
		return ModeJSON
	}
	return ModeAuto
}

// Valid reports whether s names a mode.
func Valid(s string) bool {
	if s == "" {
		return true
	}
	for _, m := range Modes {
		if OutputMode(s) == m {
			return true
		}
	}
	return false
}

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Bold    lipgloss.Style
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
}

func newStyles(enabled bool) *Styles {
	if !enabled {
		plain := lipgloss.NewStyle()
		return &Styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return &Styles{
		Bold:    lipgloss.NewStyle().Bold(true),
		Header:  lipgloss.NewStyle().Bold(true).Underline(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		Muted:   lipgloss.NewStyle().Faint(true),
	}
}

// Renderer writes command output in the configured mode.
type Renderer struct {
	w      io.Writer
	errW   io.Writer
	isTTY  bool
	mode   OutputMode
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether w is a terminal.
func NewRenderer(w, errW io.Writer, mode OutputMode) *Renderer {
	isTTY := false
	if f, ok := w.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return NewRendererWithTTY(w, errW, isTTY, mode)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
func NewRendererWithTTY(w, errW io.Writer, isTTY bool, mode OutputMode) *Renderer {
	r := &Renderer{w: w, errW: errW, isTTY: isTTY, mode: mode}
	r.styles = newStyles(r.EffectiveMode() == ModeText && isTTY)
	return r
}

// EffectiveMode resolves ModeAuto: text on a terminal, markdown otherwise.
func (r *Renderer) EffectiveMode() OutputMode {
	if r.mode == ModeAuto || r.mode == "" {
		if r.isTTY {
			return ModeText
		}
		return ModeMarkdown
	}
	return r.mode
}

// Styles returns the active styles.
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Writer returns the main output writer.
func (r *Renderer) Writer() io.Writer {
	return r.w
}

// Println writes a line to the main output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.w, a...)
}

// Printf writes formatted text to the main output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.w, format, a...)
}

// progressWriter keeps stdout clean for machine-readable output.
func (r *Renderer) progressWriter() io.Writer {
	if r.EffectiveMode() == ModeJSON {
		return r.errW
	}
	return r.w
}

// Step prints a progress line.
func (r *Renderer) Step(format string, a ...any) {
	_, _ = fmt.Fprintln(r.progressWriter(), fmt.Sprintf(format, a...))
}

// Warn prints a warning line.
func (r *Renderer) Warn(format string, a ...any) {
	msg := "WARNING: " + fmt.Sprintf(format, a...)
	_, _ = fmt.Fprintln(r.progressWriter(), r.styles.Warning.Render(msg))
}

// Header prints a section title.
func (r *Renderer) Header(title string) {
	switch r.EffectiveMode() {
	case ModeMarkdown:
		r.Printf("## %s\n\n", title)
	case ModeJSON:
	default:
		r.Println(r.styles.Header.Render(title))
	}
}

// Success prints a success line.
func (r *Renderer) Success(msg string) {
	r.Println(r.styles.Success.Render(msg))
}

// Error prints an error line to the error output.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errW, r.styles.Error.Render(msg))
}

// Muted renders s de-emphasised.
func (r *Renderer) Muted(s string) string {
	return r.styles.Muted.Render(s)
}

// StatusLine prints "name  status  detail" with the status coloured.
func (r *Renderer) StatusLine(name string, ok bool, detail string) {
	status := r.styles.Success.Render("ok")
	if !ok {
		status = r.styles.Error.Render("FAILED")
	}
	if detail != "" {
		detail = "  " + r.Muted(detail)
	}
	r.Printf("%-40s %s%s\n", name, status, detail)
}

// Table prints rows under headers: a box table in text mode and a pipe
// table in markdown mode.
func (r *Renderer) Table(headers []string, rows [][]string) {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		r.Println()
		return
	}
	t.Render()
}

// JSON writes v as indented JSON to the main output.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

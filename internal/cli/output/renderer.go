// Package output renders command results as plain tables, markdown or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"
)

// Mode selects the output format.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// ParseMode normalizes a format string into a Mode. Unknown values fall
// back to auto.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "table":
		return ModeText
	case "md", "markdown":
		return ModeMarkdown
	case "json":
		return ModeJSON
	default:
		return ModeAuto
	}
}

// Renderer writes command output in a single resolved format.
type Renderer struct {
	w    io.Writer
	mode Mode
}

// NewRenderer resolves auto mode against the destination: a terminal gets
// text tables, anything else gets markdown.
func NewRenderer(w io.Writer, mode Mode) *Renderer {
	if mode == ModeAuto || mode == "" {
		mode = ModeMarkdown
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			mode = ModeText
		}
	}
	return &Renderer{w: w, mode: mode}
}

// Mode returns the resolved output mode.
func (r *Renderer) Mode() Mode {
	return r.mode
}

// Writer returns the underlying destination.
func (r *Renderer) Writer() io.Writer {
	return r.w
}

// Table renders headers and rows in the resolved format. In JSON mode each
// row becomes an object keyed by header.
func (r *Renderer) Table(headers []string, rows [][]string) error {
	switch r.mode {
	case ModeJSON:
		return r.tableJSON(headers, rows)
	case ModeMarkdown:
		return r.tableMarkdown(headers, rows)
	default:
		return r.tableText(headers, rows)
	}
}

func (r *Renderer) tableText(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(r.w, "(0 rows)")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	t.AppendHeader(headerRow)

	for _, cells := range rows {
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		t.AppendRow(row)
	}

	t.Render()
	return nil
}

func (r *Renderer) tableMarkdown(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(r.w, "(0 rows)")
		return err
	}

	if _, err := fmt.Fprintf(r.w, "| %s |\n", strings.Join(headers, " | ")); err != nil {
		return err
	}
	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "---"
	}
	if _, err := fmt.Fprintf(r.w, "| %s |\n", strings.Join(seps, " | ")); err != nil {
		return err
	}
	for _, cells := range rows {
		if _, err := fmt.Fprintf(r.w, "| %s |\n", strings.Join(cells, " | ")); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) tableJSON(headers []string, rows [][]string) error {
	objects := make([]map[string]string, 0, len(rows))
	for _, cells := range rows {
		obj := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				obj[h] = cells[i]
			}
		}
		objects = append(objects, obj)
	}
	return r.JSON(objects)
}

// JSON encodes v as indented JSON regardless of mode.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Println writes a plain line of text. In JSON mode it is suppressed so
// machine consumers see only the JSON document.
func (r *Renderer) Println(args ...any) {
	if r.mode == ModeJSON {
		return
	}
	_, _ = fmt.Fprintln(r.w, args...)
}

// Printf writes formatted text. Suppressed in JSON mode.
func (r *Renderer) Printf(format string, args ...any) {
	if r.mode == ModeJSON {
		return
	}
	_, _ = fmt.Fprintf(r.w, format, args...)
}

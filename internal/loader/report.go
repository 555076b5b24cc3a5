package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Printer renders loader reports as text. Status words are colored unless
// color is disabled or the process is not attached to a terminal.
type Printer struct {
	w       io.Writer
	present *color.Color
	missing *color.Color
	heading *color.Color
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, useColor bool) *Printer {
	p := &Printer{
		w:       w,
		present: color.New(color.FgGreen),
		missing: color.New(color.FgRed, color.Bold),
		heading: color.New(color.Bold),
	}
	if !useColor {
		p.present.DisableColor()
		p.missing.DisableColor()
		p.heading.DisableColor()
	}
	return p
}

// Loaded prints "present: name: path" or "missing: name: path" per module.
func (p *Printer) Loaded(mods []LoadedModule) {
	for _, m := range mods {
		status := p.present.Sprint("present")
		if !m.Present {
			status = p.missing.Sprint("missing")
		}
		fmt.Fprintf(p.w, "%s: %s: %s\n", status, m.Name, m.Path)
	}
}

// Available prints "name : description" per module.
func (p *Printer) Available(mods []AvailableModule) {
	for _, m := range mods {
		fmt.Fprintf(p.w, "%s : %s\n", m.Name, m.Description)
	}
}

// Definitions prints the functions and shortcuts tables, each aligned on the
// colon after the widest name of its category.
func (p *Printer) Definitions(defs *Definitions) {
	p.table("Functions", defs.Functions)
	p.table("Shortcuts", defs.Shortcuts)
}

func (p *Printer) table(title string, entries []Entry) {
	fmt.Fprintln(p.w, p.heading.Sprint(title+":"))
	for _, line := range AlignEntries(entries) {
		fmt.Fprintf(p.w, "  %s\n", line)
	}
}

// AlignEntries right-pads every name to the widest one and joins it with its
// description: "name  : description".
func AlignEntries(entries []Entry) []string {
	width := 0
	for _, e := range entries {
		width = max(width, len(e.Name))
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, strings.TrimRight(fmt.Sprintf("%-*s: %s", width, e.Name, e.Description), " "))
	}
	return lines
}

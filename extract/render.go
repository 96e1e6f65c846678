// File: extract/render.go
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edespino/crashscope/backend"
)

// Text renders the report as plain text ready to hand to the analysis
// component. Runs of frames without source are collapsed.
func (r *CrashReport) Text() string {
	var b strings.Builder

	if r.Fault != "" {
		fmt.Fprintf(&b, "Program stopped: %s\n", r.Fault)
	}
	fmt.Fprintf(&b, "Module: %s\n\n", r.ModuleName())

	if len(r.Frames) == 0 {
		b.WriteString("No stack frames could be captured.\n")
	}
	skipped := 0
	for _, f := range r.Frames {
		if !f.HasSource() && f.Function == "" {
			skipped++
			continue
		}
		writeSkipped(&b, skipped)
		skipped = 0
		writeFrame(&b, f)
	}
	writeSkipped(&b, skipped)

	var sources []Frame
	for _, f := range r.Frames {
		if len(f.Source) > 0 {
			sources = append(sources, f)
		}
	}
	if len(sources) > 0 {
		fmt.Fprintf(&b, "\nHere is the source code for the first %d frames:\n", len(sources))
		for _, f := range sources {
			fmt.Fprintf(&b, "\nFrame #%d at %s:%d:\n", f.Index, f.File, f.Line)
			writeSource(&b, f.Source)
		}
	}

	if r.Truncated {
		b.WriteString("\n[report truncated]\n")
	}
	if r.Advisory != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Advisory)
	}
	return b.String()
}

func writeSkipped(b *strings.Builder, n int) {
	switch {
	case n == 1:
		b.WriteString("[1 skipped frame...]\n")
	case n > 1:
		fmt.Fprintf(b, "[%d skipped frames...]\n", n)
	}
}

func writeFrame(b *strings.Builder, f Frame) {
	var args, locals []string
	for _, s := range f.Symbols {
		if s.Kind == backend.KindArgument {
			args = append(args, s.String())
		} else {
			locals = append(locals, s.String())
		}
	}

	name := f.Function
	if name == "" {
		name = "??"
	}
	fmt.Fprintf(b, "frame %d: %s(%s)", f.Index, name, strings.Join(args, ", "))
	switch {
	case f.HasSource():
		fmt.Fprintf(b, " at %s:%d", f.File, f.Line)
	case f.Module != "":
		fmt.Fprintf(b, " from %s", f.Module)
	}
	b.WriteString("\n")

	for _, l := range locals {
		fmt.Fprintf(b, "    %s\n", l)
	}
}

func writeSource(b *strings.Builder, lines []SourceLine) {
	width := len(strconv.Itoa(lines[len(lines)-1].Number))
	for _, l := range lines {
		fmt.Fprintf(b, "  %*d  %s\n", width, l.Number, l.Text)
	}
}

// String renders the symbol as `(type) name = value`.
func (s Symbol) String() string {
	typ := s.Type
	if typ == "" {
		typ = "?"
	}
	value := s.Value
	if value == "" {
		value = "[unknown]"
	}
	return fmt.Sprintf("(%s) %s = %s", typ, s.Name, value)
}

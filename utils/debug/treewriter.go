// Package debug has helpers producing human readable dumps for debug report.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter builds indented text tree, two spaces per level.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

// Bytes returns tree ready to be stored in the report.
func (tw TreeWriter) Bytes() []byte {
	return []byte(tw.w.String())
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes label with quoted value, so paths and error messages with
// spaces or line breaks stay on a single line.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Count writes group header, nothing is written for empty groups.
func (tw TreeWriter) Count(depth int, label string, n int) bool {
	if n == 0 {
		return false
	}
	tw.Line(depth, "%s (%d)", label, n)
	return true
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}

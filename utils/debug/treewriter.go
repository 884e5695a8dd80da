// Package debug has helpers producing human readable dumps of program state.
package debug

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented lines.
type TreeWriter struct {
	sb     strings.Builder
	indent string
}

// NewTreeWriter creates writer indenting every level with two spaces.
func NewTreeWriter() *TreeWriter {
	return &TreeWriter{indent: "  "}
}

func (tw *TreeWriter) String() string {
	return tw.sb.String()
}

// WriteTo copies accumulated text to w.
func (tw *TreeWriter) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, tw.sb.String())
	return int64(n), err
}

func (tw *TreeWriter) pad(depth int) {
	for range depth {
		tw.sb.WriteString(tw.indent)
	}
}

// Line writes formatted line at depth.
func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(&tw.sb, format, args...)
	tw.sb.WriteByte('\n')
}

// Field writes "label: value" line. Strings are quoted so whitespace and
// empty values stay visible.
func (tw *TreeWriter) Field(depth int, label string, value any) {
	tw.pad(depth)
	tw.sb.WriteString(label)
	tw.sb.WriteString(": ")
	switch v := value.(type) {
	case string:
		tw.sb.WriteString(strconv.Quote(v))
	case fmt.Stringer:
		tw.sb.WriteString(v.String())
	default:
		fmt.Fprint(&tw.sb, v)
	}
	tw.sb.WriteByte('\n')
}

// List writes label with item count followed by quoted items one level
// deeper.
func (tw *TreeWriter) List(depth int, label string, items []string) {
	tw.Line(depth, "%s (%d)", label, len(items))
	for _, item := range items {
		tw.pad(depth + 1)
		tw.sb.WriteString(strconv.Quote(item))
		tw.sb.WriteByte('\n')
	}
}

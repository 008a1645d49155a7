package streamtpl

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format selects how a diagnostics report is written.
type Format string

const (
	Table    Format = "table"
	ASCII    Format = "ascii"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	TSV      Format = "tsv"
	JSON     Format = "json"
	JSONL    Format = "jsonl"
	YAML     Format = "yaml"
	Plain    Format = "plain"
	List     Format = "list"
	HTML     Format = "html"
)

const goTemplatePrefix = "go-template="

var formats = []Format{Table, ASCII, Markdown, CSV, TSV, JSON, JSONL, YAML, Plain, List, HTML}

// String returns the format name.
func (f Format) String() string { return string(f) }

// Formats returns all static report formats. GoTemplate formats are not
// listed because they are parameterized.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// GoTemplate returns a Format executing tmpl, a text/template, once per
// report row. Each row is written on its own line. Besides the row's fields,
// templates can call row, cell, header, title, and join, for example
// {{row . | join "|"}} or {{cell . "KIND"}}.
func GoTemplate(tmpl string) Format {
	return Format(goTemplatePrefix + tmpl)
}

// ParseFormat parses a format name or a go-template=<tmpl> string.
func ParseFormat(s string) (Format, error) {
	if strings.HasPrefix(s, goTemplatePrefix) {
		return Format(s), nil
	}
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Alignment controls column text alignment in table, markdown, and HTML
// reports.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// rower is implemented by report rows.
type rower interface {
	Row() []string
	List() []string
	fmt.Stringer
}

// layout describes the columns of a report.
type layout struct {
	title  string
	header []string
	aligns []Alignment
}

var entryLayout = layout{
	title:  "Registry",
	header: []string{"NAME", "KIND", "LOCALITY", "LENGTH", "SHADOWED"},
	aligns: []Alignment{AlignLeft, AlignLeft, AlignLeft, AlignRight, AlignCenter},
}

var frameLayout = layout{
	title:  "Stack",
	header: []string{"DEPTH", "KIND", "NAME", "POSITION", "LENGTH", "DETAIL"},
	aligns: []Alignment{AlignRight, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignLeft},
}

// Row implements the table columns of an entry report.
func (e EntryInfo) Row() []string {
	shadowed := ""
	if e.Shadowed {
		shadowed = "yes"
	}
	return []string{e.Name, e.Kind.String(), e.Locality, strconv.Itoa(e.Length), shadowed}
}

// List returns the entry name.
func (e EntryInfo) List() []string { return []string{e.Name} }

func (e EntryInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", e.Name, e.Kind)
	if e.Locality != "" {
		fmt.Fprintf(&sb, " %s", e.Locality)
	}
	fmt.Fprintf(&sb, " len=%d", e.Length)
	if e.Shadowed {
		sb.WriteString(" shadowed")
	}
	return sb.String()
}

// Row implements the table columns of a stack report.
func (f FrameInfo) Row() []string {
	return []string{
		strconv.Itoa(f.Depth), f.KindName, f.Name,
		strconv.Itoa(f.Position), strconv.Itoa(f.Length), f.Detail,
	}
}

// List returns the frame name.
func (f FrameInfo) List() []string { return []string{f.Name} }

func (f FrameInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %-11s %-24s pos=%d len=%d", f.Depth, f.KindName, f.Name, f.Position, f.Length)
	if f.Overrides > 0 {
		fmt.Fprintf(&sb, " overrides=%d", f.Overrides)
	}
	if f.Detail != "" {
		fmt.Fprintf(&sb, " %s", f.Detail)
	}
	return sb.String()
}

// WriteEntries writes the registry contents to w in format f.
func WriteEntries(w io.Writer, f Format, reg *Registry) error {
	return writeReport(w, f, entryLayout, reg.Entries())
}

// WriteFrames writes the context's stack, bottom first, to w in format f.
func WriteFrames(w io.Writer, f Format, c *Context) error {
	l := frameLayout
	l.title = fmt.Sprintf("Stack (%s, depth %d)", c.State(), c.Depth())
	return writeReport(w, f, l, c.Frames())
}

func writeReport[T rower](w io.Writer, f Format, l layout, items []T) error {
	if tmpl, ok := strings.CutPrefix(string(f), goTemplatePrefix); ok {
		return writeGoTemplate(w, tmpl, l, items)
	}
	switch f {
	case JSON:
		return writeJSON(w, items)
	case JSONL:
		return writeJSONL(w, items)
	case YAML:
		return writeYAML(w, items)
	case Plain:
		return writePlain(w, items)
	case List:
		return writeList(w, items)
	}
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = item.Row()
	}
	switch f {
	case Table:
		return writeTable(w, l, rows, BorderRounded)
	case ASCII:
		return writeTable(w, l, rows, BorderASCII)
	case Markdown:
		return writeMarkdown(w, l, rows)
	case CSV:
		return writeCSV(w, l.header, rows)
	case TSV:
		return writeTSV(w, l.header, rows)
	case HTML:
		return writeHTML(w, l, rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

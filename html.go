package streamtpl

import (
	"fmt"
	"html"
	"io"

	"github.com/microcosm-cc/bluemonday"
)

// EscapedLive wraps fn so its value is HTML-escaped.
func EscapedLive(fn LiveFunc) LiveFunc {
	return func() string {
		return html.EscapeString(fn())
	}
}

// SanitizedLive wraps fn so its value is passed through policy. A nil policy
// uses bluemonday's UGC policy.
func SanitizedLive(fn LiveFunc, policy *bluemonday.Policy) LiveFunc {
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	return func() string {
		return policy.Sanitize(fn())
	}
}

// EscapedText returns a direct static data entry holding s HTML-escaped.
func EscapedText(name, s string) Entry {
	return Text(name, html.EscapeString(s))
}

// writeHTML writes rows as an HTML table with the title as its caption.
func writeHTML(w io.Writer, l layout, rows [][]string) error {
	if _, err := fmt.Fprintln(w, "<table>"); err != nil {
		return err
	}
	if l.title != "" {
		if _, err := fmt.Fprintf(w, "  <caption>%s</caption>\n", html.EscapeString(l.title)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "  <thead>"); err != nil {
		return err
	}
	if err := writeHTMLRow(w, "th", l.header, l.aligns); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "  </thead>\n  <tbody>"); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writeHTMLRow(w, "td", row, l.aligns); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "  </tbody>\n</table>")
	return err
}

func writeHTMLRow(w io.Writer, tag string, cells []string, aligns []Alignment) error {
	if _, err := fmt.Fprintln(w, "    <tr>"); err != nil {
		return err
	}
	for i, cell := range cells {
		if _, err := fmt.Fprintf(w, "      <%s%s>%s</%s>\n", tag, alignStyle(aligns, i), html.EscapeString(cell), tag); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "    </tr>")
	return err
}

func alignStyle(aligns []Alignment, col int) string {
	if col >= len(aligns) {
		return ""
	}
	switch aligns[col] {
	case AlignRight:
		return ` style="text-align: right"`
	case AlignCenter:
		return ` style="text-align: center"`
	default:
		return ""
	}
}

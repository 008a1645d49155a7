package streamtpl

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/template"
)

// reportFuncs exposes the report columns to row templates. cell looks a column
// up by its header name, so {{cell . "KIND"}} renders what the table would.
func reportFuncs[T rower](l layout) template.FuncMap {
	return template.FuncMap{
		"title":  func() string { return l.title },
		"header": func() []string { return l.header },
		"row":    func(item T) []string { return item.Row() },
		"cell": func(item T, column string) (string, error) {
			i := slices.Index(l.header, strings.ToUpper(column))
			if i < 0 {
				return "", fmt.Errorf("no column %q in %s report", column, l.title)
			}
			return item.Row()[i], nil
		},
		"join": func(sep string, cells []string) string { return strings.Join(cells, sep) },
	}
}

func writeGoTemplate[T rower](w io.Writer, tmplStr string, l layout, items []T) error {
	tmpl, err := template.New("report").
		Option("missingkey=error").
		Funcs(reportFuncs[T](l)).
		Parse(tmplStr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	for _, item := range items {
		if err := tmpl.Execute(w, item); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

package streamtpl

import (
	"fmt"
	"io"
	"strings"
)

func writePlain[T fmt.Stringer](w io.Writer, items []T) error {
	for _, item := range items {
		if _, err := fmt.Fprintln(w, item.String()); err != nil {
			return err
		}
	}
	return nil
}

// writeList writes every item's list values, one per line.
func writeList[T rower](w io.Writer, items []T) error {
	var all []string
	for _, item := range items {
		all = append(all, item.List()...)
	}
	if len(all) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(all, "\n")+"\n")
	return err
}

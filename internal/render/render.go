// Package render presents tabulated signal values in the two response
// shapes offered to callers: a Markdown table and a name-keyed mapping.
package render

import (
	"strconv"
	"strings"

	"github.com/nvandessel/vcdq/internal/sanitize"
	"github.com/nvandessel/vcdq/internal/trace"
)

// NotFound is the sentinel shown in place of values for a requested name that
// resolved to nothing.
const NotFound = "not found"

// Markdown renders table with one row per entry and one column per sampling
// instant, headed by the 0-based step index. Not-found rows carry NotFound in
// every cell. Pipes in names are escaped. The result has no trailing newline.
func Markdown(table *trace.Table) string {
	steps := table.Steps()

	var b strings.Builder
	b.WriteString("| signal |")
	for i := range steps {
		b.WriteString(" ")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(" |")
	}
	b.WriteString("\n| --- |")
	for range steps {
		b.WriteString(" --- |")
	}

	for _, e := range table.Entries {
		b.WriteString("\n| ")
		b.WriteString(sanitize.TableCell(e.Name))
		b.WriteString(" |")
		for i := range steps {
			cell := NotFound
			if e.Found() {
				cell = sanitize.TableCell(e.Values[i])
			}
			b.WriteString(" ")
			b.WriteString(cell)
			b.WriteString(" |")
		}
	}
	return b.String()
}

// Mapping returns each entry name mapped to its []string values, or to the
// NotFound sentinel, together with the names in entry order. Go maps do not
// keep insertion order, so callers that serialize the mapping should pair it
// with the key list.
func Mapping(table *trace.Table) (map[string]any, []string) {
	out := make(map[string]any, len(table.Entries))
	keys := make([]string, 0, len(table.Entries))
	for _, e := range table.Entries {
		keys = append(keys, e.Name)
		if e.Found() {
			out[e.Name] = append([]string{}, e.Values...)
		} else {
			out[e.Name] = NotFound
		}
	}
	return out, keys
}

// Package sanitize cleans text taken from traces or errors before it is
// echoed into Markdown tables or audit logs. Signal names come from the
// trace file and are not trusted to be table-safe.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

// MaxErrorLength is the maximum length, in bytes, of a logged error message.
const MaxErrorLength = 500

// TableCell makes s safe to place between Markdown table pipes: control
// characters become spaces and "|" is escaped.
func TableCell(s string) string {
	if !strings.ContainsAny(s, "|") && !hasControl(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch {
		case r == '|':
			b.WriteString(`\|`)
		case r < 0x20 || r == 0x7f:
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ErrorMessage flattens msg to a single line without control characters and
// truncates it to MaxErrorLength, appending "..." when cut.
func ErrorMessage(msg string) string {
	msg = strings.TrimSpace(stripControlChars(strings.ReplaceAll(msg, "\n", " ")))
	if len(msg) <= MaxErrorLength {
		return msg
	}

	cut := MaxErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}

func hasControl(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f {
			return true
		}
	}
	return false
}

// stripControlChars removes ASCII control characters except tab.
func stripControlChars(s string) string {
	if !hasControl(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\t') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

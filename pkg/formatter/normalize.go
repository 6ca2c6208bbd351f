package formatter

import (
	"strings"
	"unicode"
)

// NormalizeLines splits s into lines, cleans each one and drops the lines
// left empty. Relative order is preserved. Applying it to its own joined
// output ("\n") returns the same lines.
func NormalizeLines(s string) []string {
	raw := strings.Split(s, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = normalizeLine(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// normalizeLine strips the leading run of hyphens and commas left by an
// empty field at the start of a group, collapses whitespace runs and trims.
func normalizeLine(line string) string {
	line = strings.TrimLeftFunc(line, func(r rune) bool {
		return r == '-' || r == ',' || unicode.IsSpace(r)
	})
	return strings.TrimSpace(collapseSpace(line))
}

// collapseSpace replaces every run of two or more whitespace characters
// with a single space. Lone whitespace characters are kept as they are.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) {
			b.WriteRune(runes[i])
			continue
		}
		j := i
		for j+1 < len(runes) && unicode.IsSpace(runes[j+1]) {
			j++
		}
		if j > i {
			b.WriteByte(' ')
		} else {
			b.WriteRune(runes[i])
		}
		i = j
	}
	return b.String()
}

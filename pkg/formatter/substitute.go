package formatter

import (
	"strings"

	"github.com/CTAG07/Addressline/pkg/addressing"
)

// The reference formats assume neighbouring fields are always filled in.
// Turning their separators into line breaks lets NormalizeLines drop them
// together with the empty fields.
var punctuationReplacer = strings.NewReplacer(",", "\n", " - ", "\n", "/", "\n")

// NormalizePunctuation turns list separators and slashes into line breaks.
func NormalizePunctuation(format string) string {
	return punctuationReplacer.Replace(format)
}

// AlterFormatString deletes the placeholders of offered but unselected
// properties from a format string. It is a no-op for an empty filter.
func AlterFormatString(format string, filter Filter) string {
	if filter.Empty() {
		return format
	}
	return addressing.ReplacePlaceholders(format, func(field addressing.Field) (string, bool) {
		if filter.Strips(field) {
			return "", true
		}
		return "", false
	})
}

// Substitute replaces every placeholder of format with its trimmed value.
// Values of fields the filter does not show are replaced by the empty
// string, as are known fields missing from values. Unknown tokens are kept.
// Substituted text is never scanned again.
func Substitute(format string, values map[addressing.Field]string, filter Filter) string {
	return addressing.ReplacePlaceholders(format, func(field addressing.Field) (string, bool) {
		if !field.Valid() {
			return "", false
		}
		if !filter.Shows(field) {
			return "", true
		}
		return strings.TrimSpace(values[field]), true
	})
}

// ExtractItems substitutes values into format and returns the normalized
// display lines.
func ExtractItems(format string, values map[addressing.Field]string, filter Filter) []string {
	return NormalizeLines(Substitute(format, values, filter))
}

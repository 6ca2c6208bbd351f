// Package formatter renders structured addresses as ordered display lines
// following the layout conventions of each country.
//
// Formatting runs in three stages. SelectFormat picks the country's local or
// generic layout depending on whether the address locale matches the format
// locale. Substitute fills placeholders with trimmed values, honouring the
// configured property filter. NormalizeLines splits the result into lines and
// removes the punctuation and blank lines left behind by empty fields.
// Formatter ties the stages together for a single Settings value.
package formatter

package addressing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidFormat is returned when a format definition cannot be used.
var ErrInvalidFormat = errors.New("invalid address format")

// placeholderPattern matches a placeholder token. Names are letters and
// digits only, so a token ends at the first punctuation or space.
var placeholderPattern = regexp.MustCompile(`%[A-Za-z][A-Za-z0-9]*`)

// Subdivision is an administrative area of a country. Code and LocalCode are
// what an address prints; an empty Code means the map key is printed as is.
type Subdivision struct {
	Code      string `json:"code,omitempty" yaml:"code,omitempty"`
	LocalCode string `json:"local_code,omitempty" yaml:"local_code,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	LocalName string `json:"local_name,omitempty" yaml:"local_name,omitempty"`
}

// AddressFormat describes how addresses of one country are laid out.
// Format is used for rendering outside the country's own locale and
// LocalFormat, when set, inside it. Both are newline separated groups of
// literal text and placeholders.
//
// Values returned by a FormatRepository must be treated as read-only.
type AddressFormat struct {
	CountryCode  string                 `json:"country_code" yaml:"country_code"`
	Locale       string                 `json:"locale,omitempty" yaml:"locale,omitempty"`
	Format       string                 `json:"format" yaml:"format"`
	LocalFormat  string                 `json:"local_format,omitempty" yaml:"local_format,omitempty"`
	Subdivisions map[string]Subdivision `json:"subdivisions,omitempty" yaml:"subdivisions,omitempty"`
}

// LocalFormatOrDefault returns LocalFormat, or Format for countries that do
// not define a separate local layout.
func (f AddressFormat) LocalFormatOrDefault() string {
	if f.LocalFormat != "" {
		return f.LocalFormat
	}
	return f.Format
}

// UsedFields returns the fields referenced by either format string, in
// order of first appearance.
func (f AddressFormat) UsedFields() []Field {
	seen := make(map[Field]struct{})
	var used []Field
	for _, src := range []string{f.Format, f.LocalFormat} {
		for _, token := range placeholderPattern.FindAllString(src, -1) {
			field := Field(token[1:])
			if !field.Valid() {
				continue
			}
			if _, ok := seen[field]; ok {
				continue
			}
			seen[field] = struct{}{}
			used = append(used, field)
		}
	}
	return used
}

// SubdivisionCode resolves a stored administrative area to the code printed
// in an address, preferring the local code for the local layout. Unknown
// areas are returned unchanged.
func (f AddressFormat) SubdivisionCode(id string, local bool) string {
	sub, ok := f.Subdivisions[id]
	if !ok {
		return id
	}
	if local && sub.LocalCode != "" {
		return sub.LocalCode
	}
	if sub.Code == "" {
		return id
	}
	return sub.Code
}

// Validate checks that the definition has a country, a generic format and
// only known placeholders.
func (f AddressFormat) Validate() error {
	if _, err := NormalizeCountryCode(f.CountryCode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if strings.TrimSpace(f.Format) == "" {
		return fmt.Errorf("%w: %s has an empty format", ErrInvalidFormat, f.CountryCode)
	}
	for _, src := range []string{f.Format, f.LocalFormat} {
		for _, token := range placeholderPattern.FindAllString(src, -1) {
			if !Field(token[1:]).Valid() {
				return fmt.Errorf("%w: %s uses unknown placeholder %s", ErrInvalidFormat, f.CountryCode, token)
			}
		}
	}
	return nil
}

// ReplacePlaceholders rewrites every placeholder token in s with the result
// of fn. Tokens for which fn reports false are left untouched.
func ReplacePlaceholders(s string, fn func(Field) (string, bool)) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		if out, ok := fn(Field(token[1:])); ok {
			return out
		}
		return token
	})
}

package addressing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnknownCountry is wrapped by every LookupError.
var ErrUnknownCountry = errors.New("unknown country")

// LookupError reports a country code that no repository can serve.
type LookupError struct {
	CountryCode string
	Err         error
}

func (e *LookupError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, ErrUnknownCountry) {
		return fmt.Sprintf("country %q: %v", e.CountryCode, e.Err)
	}
	return fmt.Sprintf("unknown country code %q", e.CountryCode)
}

func (e *LookupError) Unwrap() []error {
	if e.Err == nil || errors.Is(e.Err, ErrUnknownCountry) {
		return []error{ErrUnknownCountry}
	}
	return []error{ErrUnknownCountry, e.Err}
}

// NormalizeCountryCode upper-cases a two letter ISO 3166 code and rejects
// anything that is not a country.
func NormalizeCountryCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return "", &LookupError{CountryCode: code}
	}
	region, err := language.ParseRegion(code)
	if err != nil || !region.IsCountry() {
		return "", &LookupError{CountryCode: code}
	}
	return region.String(), nil
}

// CountryRepository resolves country display names in a given language.
type CountryRepository struct {
	fallback display.Namer
}

// NewCountryRepository returns a repository that falls back to English
// names for languages without display data.
func NewCountryRepository() *CountryRepository {
	return &CountryRepository{fallback: display.English.Regions()}
}

// Name returns the name of a country in the language identified by
// langcode. An empty langcode selects English.
func (c *CountryRepository) Name(countryCode, langcode string) (string, error) {
	code, err := NormalizeCountryCode(countryCode)
	if err != nil {
		return "", err
	}
	region := language.MustParseRegion(code)
	if name := c.namer(langcode).Name(region); name != "" {
		return name, nil
	}
	if name := c.fallback.Name(region); name != "" {
		return name, nil
	}
	return code, nil
}

// List returns the names of the given country codes, sorted by name.
// Invalid codes are skipped.
func (c *CountryRepository) List(codes []string, langcode string) []Country {
	out := make([]Country, 0, len(codes))
	for _, code := range codes {
		name, err := c.Name(code, langcode)
		if err != nil {
			continue
		}
		out = append(out, Country{Code: strings.ToUpper(code), Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *CountryRepository) namer(langcode string) display.Namer {
	if langcode == "" {
		return c.fallback
	}
	tag, err := language.Parse(strings.ReplaceAll(langcode, "_", "-"))
	if err != nil {
		return c.fallback
	}
	if n := display.Regions(tag); n != nil {
		return n
	}
	return c.fallback
}

// Country pairs a code with its display name.
type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

package formatter

import (
	"fmt"
	"strings"

	"github.com/CTAG07/Addressline/pkg/addressing"
)

// CountryNamer resolves the display name of a country in a language.
type CountryNamer interface {
	Name(countryCode, langcode string) (string, error)
}

// Element is one formatted address, ready for a template.
type Element struct {
	CountryCode string   `json:"country_code"`
	Local       bool     `json:"local"`
	Items       []string `json:"items"`
	Delimiter   string   `json:"delimiter"`
}

// Inline joins the display lines with the delimiter.
func (e Element) Inline() string {
	return strings.Join(e.Items, e.Delimiter)
}

// Formatter formats addresses for inline display. It is immutable after
// construction and safe for concurrent use.
type Formatter struct {
	formats   addressing.FormatRepository
	countries CountryNamer
	settings  Settings
	filter    Filter
}

// New validates settings and returns a Formatter backed by the given
// repositories.
func New(formats addressing.FormatRepository, countries CountryNamer, settings Settings) (*Formatter, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings.Properties = append([]addressing.Field(nil), settings.Properties...)
	settings.Options = append([]addressing.Field(nil), settings.Options...)
	return &Formatter{
		formats:   formats,
		countries: countries,
		settings:  settings,
		filter:    settings.Filter(),
	}, nil
}

// Settings returns the settings the formatter was built with.
func (f *Formatter) Settings() Settings {
	s := f.settings
	s.Properties = append([]addressing.Field(nil), s.Properties...)
	s.Options = append([]addressing.Field(nil), s.Options...)
	return s
}

// Format renders one address. The country name is resolved in langcode.
// An unknown country code yields a *addressing.LookupError; every other
// input is best effort and empty fields simply disappear.
func (f *Formatter) Format(addr addressing.Address, langcode string) (Element, error) {
	def, err := f.formats.Get(addr.CountryCode)
	if err != nil {
		return Element{}, err
	}
	countryName, err := f.countries.Name(def.CountryCode, langcode)
	if err != nil {
		return Element{}, err
	}

	format, local := SelectFormat(def, addr.Locale)

	values := map[addressing.Field]string{addressing.FieldCountry: countryName}
	for _, field := range def.UsedFields() {
		if field == addressing.FieldCountry {
			continue
		}
		value := addr.Value(field)
		if field == addressing.FieldAdministrativeArea && value != "" {
			value = def.SubdivisionCode(strings.TrimSpace(value), local)
		}
		values[field] = value
	}

	format = NormalizePunctuation(format)
	format = AlterFormatString(format, f.filter)

	return Element{
		CountryCode: def.CountryCode,
		Local:       local,
		Items:       ExtractItems(format, values, f.filter),
		Delimiter:   f.settings.Delimiter,
	}, nil
}

// FormatAll renders a list of addresses, one element per address. It stops
// at the first address that cannot be formatted.
func (f *Formatter) FormatAll(addrs []addressing.Address, langcode string) ([]Element, error) {
	out := make([]Element, 0, len(addrs))
	for i, addr := range addrs {
		el, err := f.Format(addr, langcode)
		if err != nil {
			return nil, fmt.Errorf("address %d: %w", i, err)
		}
		out = append(out, el)
	}
	return out, nil
}

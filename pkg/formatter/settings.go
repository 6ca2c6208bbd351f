package formatter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CTAG07/Addressline/pkg/addressing"
)

// ErrInvalidSettings is wrapped by every Settings validation error.
var ErrInvalidSettings = errors.New("invalid formatter settings")

// Visibility decides what happens to fields that are not offered as
// display options while a property filter is active.
type Visibility string

const (
	UnlistedHidden  Visibility = "hidden"
	UnlistedVisible Visibility = "visible"
)

// Settings configures an inline address formatter.
type Settings struct {
	// Delimiter joins the display lines for inline rendering. Required.
	Delimiter string `json:"delimiter"`

	// Properties restricts output to the listed fields, in configuration
	// order. Empty shows every field.
	Properties []addressing.Field `json:"properties"`

	// Options are the fields offered for selection. Empty offers every
	// known field.
	Options []addressing.Field `json:"options,omitempty"`

	// UnlistedFields applies to fields missing from Options when
	// Properties is non-empty. Defaults to UnlistedHidden.
	UnlistedFields Visibility `json:"unlisted_fields,omitempty"`
}

// DefaultSettings returns settings that show every field joined by ", ".
func DefaultSettings() Settings {
	return Settings{
		Delimiter:      ", ",
		Properties:     []addressing.Field{},
		UnlistedFields: UnlistedHidden,
	}
}

// Validate checks the settings before they are used.
func (s Settings) Validate() error {
	if s.Delimiter == "" {
		return fmt.Errorf("%w: delimiter is required", ErrInvalidSettings)
	}
	switch s.UnlistedFields {
	case "", UnlistedHidden, UnlistedVisible:
	default:
		return fmt.Errorf("%w: unlisted_fields must be %q or %q, got %q", ErrInvalidSettings, UnlistedHidden, UnlistedVisible, s.UnlistedFields)
	}
	for _, f := range s.Options {
		if !f.Valid() {
			return fmt.Errorf("%w: unknown option %q", ErrInvalidSettings, f)
		}
	}
	offered := s.offered()
	for _, f := range s.Properties {
		if !f.Valid() {
			return fmt.Errorf("%w: unknown property %q", ErrInvalidSettings, f)
		}
		if _, ok := offered[f]; !ok {
			return fmt.Errorf("%w: property %q is not a display option", ErrInvalidSettings, f)
		}
	}
	return nil
}

// Summary describes the settings in two human-readable lines.
func (s Settings) Summary() []string {
	names := make([]string, 0, len(s.Properties))
	for _, f := range s.selected() {
		names = append(names, string(f))
	}
	return []string{
		"Delimiter: " + s.Delimiter,
		"Properties: " + strings.Join(names, ", "),
	}
}

// Option is a selectable display property.
type Option struct {
	Field addressing.Field `json:"field"`
	Label string           `json:"label"`
}

// DisplayOptions lists the properties offered for selection, country first.
func (s Settings) DisplayOptions() []Option {
	fields := s.Options
	if len(fields) == 0 {
		fields = addressing.AllFields()
	}
	out := make([]Option, 0, len(fields))
	for _, f := range fields {
		out = append(out, Option{Field: f, Label: f.Label()})
	}
	return out
}

// Filter builds the property filter described by the settings.
func (s Settings) Filter() Filter {
	f := Filter{
		options:  s.offered(),
		unlisted: s.UnlistedFields,
	}
	if f.unlisted == "" {
		f.unlisted = UnlistedHidden
	}
	for _, field := range s.selected() {
		if f.selected == nil {
			f.selected = make(map[addressing.Field]struct{})
		}
		f.selected[field] = struct{}{}
		f.order = append(f.order, field)
	}
	return f
}

// selected returns the configured properties without duplicates.
func (s Settings) selected() []addressing.Field {
	seen := make(map[addressing.Field]struct{}, len(s.Properties))
	out := make([]addressing.Field, 0, len(s.Properties))
	for _, f := range s.Properties {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func (s Settings) offered() map[addressing.Field]struct{} {
	fields := s.Options
	if len(fields) == 0 {
		fields = addressing.AllFields()
	}
	set := make(map[addressing.Field]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Filter is the set of properties allowed in the output. The zero value
// lets everything through.
type Filter struct {
	selected map[addressing.Field]struct{}
	order    []addressing.Field
	options  map[addressing.Field]struct{}
	unlisted Visibility
}

// NewFilter returns a filter selecting the given fields out of all known
// fields, hiding anything unlisted.
func NewFilter(fields ...addressing.Field) Filter {
	s := DefaultSettings()
	s.Properties = fields
	return s.Filter()
}

// Empty reports whether the filter lets every field through.
func (f Filter) Empty() bool {
	return len(f.selected) == 0
}

// Fields returns the selected fields in configuration order.
func (f Filter) Fields() []addressing.Field {
	out := make([]addressing.Field, len(f.order))
	copy(out, f.order)
	return out
}

// Shows reports whether a field keeps its value during substitution.
func (f Filter) Shows(field addressing.Field) bool {
	if f.Empty() {
		return true
	}
	if _, ok := f.selected[field]; ok {
		return true
	}
	if _, offered := f.options[field]; !offered && f.unlisted == UnlistedVisible {
		return true
	}
	return false
}

// Strips reports whether the field's placeholder is removed from the format
// string before substitution: it was offered as an option but not selected.
func (f Filter) Strips(field addressing.Field) bool {
	if f.Empty() {
		return false
	}
	if _, ok := f.options[field]; !ok {
		return false
	}
	_, ok := f.selected[field]
	return !ok
}

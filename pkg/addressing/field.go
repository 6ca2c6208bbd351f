package addressing

import (
	"fmt"
	"strings"
)

// Field names a single address property. The string value is the spelling
// used by format placeholders, e.g. "%postalCode".
type Field string

const (
	FieldCountry            Field = "country"
	FieldAdministrativeArea Field = "administrativeArea"
	FieldLocality           Field = "locality"
	FieldDependentLocality  Field = "dependentLocality"
	FieldPostalCode         Field = "postalCode"
	FieldSortingCode        Field = "sortingCode"
	FieldAddressLine1       Field = "addressLine1"
	FieldAddressLine2       Field = "addressLine2"
	FieldOrganization       Field = "organization"
	FieldRecipient          Field = "recipient"
	FieldGivenName          Field = "givenName"
	FieldAdditionalName     Field = "additionalName"
	FieldFamilyName         Field = "familyName"
)

// allFields is ordered the way the fields are offered as display options.
var allFields = []Field{
	FieldCountry,
	FieldAdministrativeArea,
	FieldLocality,
	FieldDependentLocality,
	FieldPostalCode,
	FieldSortingCode,
	FieldAddressLine1,
	FieldAddressLine2,
	FieldOrganization,
	FieldRecipient,
	FieldGivenName,
	FieldAdditionalName,
	FieldFamilyName,
}

var fieldLabels = map[Field]string{
	FieldCountry:            "The country",
	FieldAdministrativeArea: "Administrative area",
	FieldLocality:           "Locality",
	FieldDependentLocality:  "Dependent locality",
	FieldPostalCode:         "Postal code",
	FieldSortingCode:        "Sorting code",
	FieldAddressLine1:       "Address line 1",
	FieldAddressLine2:       "Address line 2",
	FieldOrganization:       "Company",
	FieldRecipient:          "Recipient",
	FieldGivenName:          "First name",
	FieldAdditionalName:     "Middle name",
	FieldFamilyName:         "Last name",
}

// AllFields returns every known field, country first.
func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// ParseField resolves a field by its placeholder name. Matching is exact.
func ParseField(name string) (Field, error) {
	f := Field(strings.TrimPrefix(name, "%"))
	if _, ok := fieldLabels[f]; !ok {
		return "", fmt.Errorf("unknown address field %q", name)
	}
	return f, nil
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	_, ok := fieldLabels[f]
	return ok
}

// Label returns the human-readable label of the field.
func (f Field) Label() string {
	return fieldLabels[f]
}

// Placeholder returns the token standing for f in a format string.
func (f Field) Placeholder() string {
	return "%" + string(f)
}

// Key returns the snake_case spelling of f used for query parameters and
// command line flags, e.g. "address_line1".
func (f Field) Key() string {
	var b strings.Builder
	for i, r := range string(f) {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

package addressing

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAddressFormat_UsedFields(t *testing.T) {
	f := AddressFormat{
		CountryCode: "CN",
		Format:      "%givenName %familyName\n%locality, %postalCode",
		LocalFormat: "%postalCode\n%administrativeArea%locality%dependentLocality",
	}
	want := []Field{FieldGivenName, FieldFamilyName, FieldLocality, FieldPostalCode, FieldAdministrativeArea, FieldDependentLocality}
	if diff := cmp.Diff(want, f.UsedFields()); diff != "" {
		t.Errorf("UsedFields() mismatch (-want +got):\n%s", diff)
	}
}

func TestAddressFormat_Validate(t *testing.T) {
	tests := []struct {
		name string
		def  AddressFormat
		ok   bool
	}{
		{"valid", AddressFormat{CountryCode: "BE", Format: "%addressLine1\n%postalCode %locality"}, true},
		{"lowercase country", AddressFormat{CountryCode: "be", Format: "%locality"}, true},
		{"empty format", AddressFormat{CountryCode: "BE", Format: "  "}, false},
		{"unknown placeholder", AddressFormat{CountryCode: "BE", Format: "%street"}, false},
		{"unknown local placeholder", AddressFormat{CountryCode: "JP", Format: "%locality", LocalFormat: "%prefecture"}, false},
		{"bad country", AddressFormat{CountryCode: "XX", Format: "%locality"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("Validate() error = %v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestAddressFormat_SubdivisionCode(t *testing.T) {
	f := AddressFormat{Subdivisions: map[string]Subdivision{
		"Tokyo": {LocalCode: "東京都", Name: "Tokyo", LocalName: "東京都"},
		"CA":    {Name: "California"},
		"QC":    {Code: "Qc", LocalCode: "QC", Name: "Quebec"},
	}}
	tests := []struct {
		id    string
		local bool
		want  string
	}{
		{"Tokyo", false, "Tokyo"},
		{"Tokyo", true, "東京都"},
		{"CA", false, "CA"},
		{"CA", true, "CA"},
		{"QC", false, "Qc"},
		{"QC", true, "QC"},
		{"ZZ", false, "ZZ"},
	}
	for _, tt := range tests {
		if got := f.SubdivisionCode(tt.id, tt.local); got != tt.want {
			t.Errorf("SubdivisionCode(%q, %v) = %q, want %q", tt.id, tt.local, got, tt.want)
		}
	}
}

func TestReplacePlaceholders(t *testing.T) {
	got := ReplacePlaceholders("%locality, %postalCode %x", func(f Field) (string, bool) {
		if f == FieldLocality {
			return "Brussels", true
		}
		return "", false
	})
	if want := "Brussels, %postalCode %x"; got != want {
		t.Errorf("ReplacePlaceholders() = %q, want %q", got, want)
	}
}

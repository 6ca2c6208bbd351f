package addressing

import "testing"

func TestParseField(t *testing.T) {
	for _, f := range AllFields() {
		got, err := ParseField(string(f))
		if err != nil || got != f {
			t.Errorf("ParseField(%q) = %q, %v", f, got, err)
		}
		if f.Label() == "" {
			t.Errorf("field %q has no label", f)
		}
	}
	if got, err := ParseField("%locality"); err != nil || got != FieldLocality {
		t.Errorf("ParseField with placeholder prefix = %q, %v", got, err)
	}
	if _, err := ParseField("Locality"); err == nil {
		t.Error("ParseField should be case-sensitive")
	}
}

func TestAddress_ValueAndSet(t *testing.T) {
	var a Address
	for i, f := range AllFields() {
		a.Set(f, string(rune('a'+i)))
	}
	for i, f := range AllFields() {
		want := string(rune('a' + i))
		if f == FieldCountry {
			want = "A"
		}
		if got := a.Value(f); got != want {
			t.Errorf("Value(%s) = %q, want %q", f, got, want)
		}
	}
}

func TestField_Key(t *testing.T) {
	tests := map[Field]string{
		FieldCountry:            "country",
		FieldAdministrativeArea: "administrative_area",
		FieldAddressLine1:       "address_line1",
		FieldGivenName:          "given_name",
	}
	for f, want := range tests {
		if got := f.Key(); got != want {
			t.Errorf("%q.Key() = %q, want %q", f, got, want)
		}
	}
}

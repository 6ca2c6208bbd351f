package formatter

import (
	"testing"

	"github.com/CTAG07/Addressline/pkg/addressing"
)

func TestSelectFormat(t *testing.T) {
	jp := addressing.AddressFormat{
		CountryCode: "JP",
		Locale:      "ja",
		Format:      "%addressLine1\n%locality",
		LocalFormat: "〒%postalCode\n%locality",
	}
	noLocal := addressing.AddressFormat{
		CountryCode: "BR",
		Locale:      "pt",
		Format:      "%addressLine1\n%locality",
	}
	noLocale := addressing.AddressFormat{CountryCode: "BE", Format: "%addressLine1"}

	tests := []struct {
		name      string
		def       addressing.AddressFormat
		locale    string
		want      string
		wantLocal bool
	}{
		{"matching locale", jp, "ja", "%country\n〒%postalCode\n%locality", true},
		{"matching with region", jp, "ja-JP", "%country\n〒%postalCode\n%locality", true},
		{"other locale", jp, "en", "%addressLine1\n%locality\n%country", false},
		{"empty address locale", jp, "", "%addressLine1\n%locality\n%country", false},
		{"local falls back to generic layout", noLocal, "pt-BR", "%country\n%addressLine1\n%locality", true},
		{"format without locale", noLocale, "fr", "%addressLine1\n%country", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, local := SelectFormat(tt.def, tt.locale)
			if got != tt.want || local != tt.wantLocal {
				t.Errorf("SelectFormat() = %q, %v; want %q, %v", got, local, tt.want, tt.wantLocal)
			}
		})
	}
}

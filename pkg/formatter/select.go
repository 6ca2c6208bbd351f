package formatter

import "github.com/CTAG07/Addressline/pkg/addressing"

var countryPlaceholder = addressing.FieldCountry.Placeholder()

// SelectFormat picks the layout for an address written in addressLocale.
// When the format declares a locale matching the address locale, the local
// layout is used with the country leading; otherwise the generic layout is
// used with the country trailing. The second result reports whether the
// local layout was chosen.
func SelectFormat(def addressing.AddressFormat, addressLocale string) (string, bool) {
	if def.Locale != "" && addressing.MatchCandidates(def.Locale, addressLocale) {
		return countryPlaceholder + "\n" + def.LocalFormatOrDefault(), true
	}
	return def.Format + "\n" + countryPlaceholder, false
}

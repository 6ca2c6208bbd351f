package addressing

import "strings"

// Address is a structured postal address as stored by the caller.
// Locale is the BCP 47 tag of the address value itself and decides whether
// the country's local format applies.
type Address struct {
	CountryCode        string `json:"country_code" yaml:"country_code"`
	Locale             string `json:"locale,omitempty" yaml:"locale,omitempty"`
	AdministrativeArea string `json:"administrative_area,omitempty" yaml:"administrative_area,omitempty"`
	Locality           string `json:"locality,omitempty" yaml:"locality,omitempty"`
	DependentLocality  string `json:"dependent_locality,omitempty" yaml:"dependent_locality,omitempty"`
	PostalCode         string `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	SortingCode        string `json:"sorting_code,omitempty" yaml:"sorting_code,omitempty"`
	AddressLine1       string `json:"address_line1,omitempty" yaml:"address_line1,omitempty"`
	AddressLine2       string `json:"address_line2,omitempty" yaml:"address_line2,omitempty"`
	Organization       string `json:"organization,omitempty" yaml:"organization,omitempty"`
	Recipient          string `json:"recipient,omitempty" yaml:"recipient,omitempty"`
	GivenName          string `json:"given_name,omitempty" yaml:"given_name,omitempty"`
	AdditionalName     string `json:"additional_name,omitempty" yaml:"additional_name,omitempty"`
	FamilyName         string `json:"family_name,omitempty" yaml:"family_name,omitempty"`
}

// Value returns the stored value of a field. The country has no stored value
// beyond its code, its display name is resolved by a CountryRepository.
func (a Address) Value(f Field) string {
	switch f {
	case FieldCountry:
		return strings.ToUpper(a.CountryCode)
	case FieldAdministrativeArea:
		return a.AdministrativeArea
	case FieldLocality:
		return a.Locality
	case FieldDependentLocality:
		return a.DependentLocality
	case FieldPostalCode:
		return a.PostalCode
	case FieldSortingCode:
		return a.SortingCode
	case FieldAddressLine1:
		return a.AddressLine1
	case FieldAddressLine2:
		return a.AddressLine2
	case FieldOrganization:
		return a.Organization
	case FieldRecipient:
		return a.Recipient
	case FieldGivenName:
		return a.GivenName
	case FieldAdditionalName:
		return a.AdditionalName
	case FieldFamilyName:
		return a.FamilyName
	}
	return ""
}

// Set assigns a field value. Setting FieldCountry changes the country code.
func (a *Address) Set(f Field, value string) {
	switch f {
	case FieldCountry:
		a.CountryCode = value
	case FieldAdministrativeArea:
		a.AdministrativeArea = value
	case FieldLocality:
		a.Locality = value
	case FieldDependentLocality:
		a.DependentLocality = value
	case FieldPostalCode:
		a.PostalCode = value
	case FieldSortingCode:
		a.SortingCode = value
	case FieldAddressLine1:
		a.AddressLine1 = value
	case FieldAddressLine2:
		a.AddressLine2 = value
	case FieldOrganization:
		a.Organization = value
	case FieldRecipient:
		a.Recipient = value
	case FieldGivenName:
		a.GivenName = value
	case FieldAdditionalName:
		a.AdditionalName = value
	case FieldFamilyName:
		a.FamilyName = value
	}
}

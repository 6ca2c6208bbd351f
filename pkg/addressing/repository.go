package addressing

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"sync"
)

// GenericFormat applies to valid countries without a dedicated definition.
const GenericFormat = "%givenName %familyName\n%organization\n%addressLine1\n%addressLine2\n%locality"

//go:embed formats.yaml
var embeddedFormats []byte

// FormatRepository looks up the address format of a country. Unknown or
// invalid country codes yield a *LookupError.
type FormatRepository interface {
	Get(countryCode string) (AddressFormat, error)
}

// Repository serves the embedded reference table. It is read-only and safe
// for concurrent use.
type Repository struct {
	defs map[string]AddressFormat
}

var (
	defaultRepo     *Repository
	defaultRepoErr  error
	defaultRepoOnce sync.Once
)

// DefaultRepository returns the shared repository built from the embedded
// table. The table is parsed once.
func DefaultRepository() (*Repository, error) {
	defaultRepoOnce.Do(func() {
		defaultRepo, defaultRepoErr = NewRepository(embeddedFormats)
	})
	return defaultRepo, defaultRepoErr
}

// NewRepository builds a repository from YAML definitions.
func NewRepository(data []byte) (*Repository, error) {
	defs, err := ParseDefinitions(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load address formats: %w", err)
	}
	r := &Repository{defs: make(map[string]AddressFormat, len(defs))}
	for _, def := range defs {
		r.defs[def.CountryCode] = def
	}
	return r, nil
}

// Get returns the definition for countryCode, or the generic format when the
// code is a valid country without its own entry.
func (r *Repository) Get(countryCode string) (AddressFormat, error) {
	code, err := NormalizeCountryCode(countryCode)
	if err != nil {
		return AddressFormat{}, err
	}
	if def, ok := r.defs[code]; ok {
		return def, nil
	}
	return AddressFormat{CountryCode: code, Format: GenericFormat}, nil
}

// Has reports whether the table carries a dedicated definition.
func (r *Repository) Has(countryCode string) bool {
	code, err := NormalizeCountryCode(countryCode)
	if err != nil {
		return false
	}
	_, ok := r.defs[code]
	return ok
}

// Codes returns the country codes with a dedicated definition, sorted.
func (r *Repository) Codes() []string {
	codes := make([]string, 0, len(r.defs))
	for code := range r.defs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

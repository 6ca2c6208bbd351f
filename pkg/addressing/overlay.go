package addressing

import (
	"context"
	"sort"
	"sync"
)

// Overlay layers runtime overrides on top of a base repository. Overrides
// live in memory; LoadFromStore fills them from a Store and Set/Remove keep
// them in step with later writes. All methods are concurrent-safe.
type Overlay struct {
	mu        sync.RWMutex
	base      FormatRepository
	overrides map[string]AddressFormat
}

// NewOverlay returns an Overlay without overrides.
func NewOverlay(base FormatRepository) *Overlay {
	return &Overlay{
		base:      base,
		overrides: make(map[string]AddressFormat),
	}
}

// LoadFromStore replaces the in-memory overrides with the stored ones.
func (o *Overlay) LoadFromStore(ctx context.Context, s *Store) error {
	stored, err := s.List(ctx)
	if err != nil {
		return err
	}
	overrides := make(map[string]AddressFormat, len(stored))
	for _, f := range stored {
		overrides[f.CountryCode] = f.AddressFormat
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.overrides = overrides
	return nil
}

// Get returns the override for countryCode if there is one, otherwise the
// base repository's definition.
func (o *Overlay) Get(countryCode string) (AddressFormat, error) {
	code, err := NormalizeCountryCode(countryCode)
	if err != nil {
		return AddressFormat{}, err
	}
	o.mu.RLock()
	def, ok := o.overrides[code]
	o.mu.RUnlock()
	if ok {
		return def, nil
	}
	return o.base.Get(code)
}

// Set installs an override. The definition is validated first.
func (o *Overlay) Set(def AddressFormat) error {
	if err := def.Validate(); err != nil {
		return err
	}
	def.CountryCode, _ = NormalizeCountryCode(def.CountryCode)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.overrides[def.CountryCode] = def
	return nil
}

// Remove drops the override for countryCode, if any.
func (o *Overlay) Remove(countryCode string) {
	code, err := NormalizeCountryCode(countryCode)
	if err != nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.overrides, code)
}

// Overridden returns the country codes with an override, sorted.
func (o *Overlay) Overridden() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	codes := make([]string, 0, len(o.overrides))
	for code := range o.overrides {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

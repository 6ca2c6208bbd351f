package addressing

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseDefinitions reads a YAML list of format definitions. Every entry is
// validated and its country code normalized; duplicates are rejected.
func ParseDefinitions(r io.Reader) ([]AddressFormat, error) {
	var defs []AddressFormat
	if err := yaml.NewDecoder(r).Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode format definitions: %w", err)
	}

	seen := make(map[string]struct{}, len(defs))
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return nil, fmt.Errorf("definition %d: %w", i, err)
		}
		code, _ := NormalizeCountryCode(defs[i].CountryCode)
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("%w: duplicate definition for %s", ErrInvalidFormat, code)
		}
		seen[code] = struct{}{}
		defs[i].CountryCode = code
	}
	return defs, nil
}

// WriteDefinitions encodes definitions in the format ParseDefinitions reads.
func WriteDefinitions(w io.Writer, defs []AddressFormat) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(defs); err != nil {
		return fmt.Errorf("failed to encode format definitions: %w", err)
	}
	return enc.Close()
}

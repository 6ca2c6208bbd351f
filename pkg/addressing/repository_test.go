package addressing

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultRepository(t *testing.T) {
	repo, err := DefaultRepository()
	if err != nil {
		t.Fatalf("DefaultRepository() error = %v", err)
	}
	if len(repo.Codes()) == 0 {
		t.Fatal("embedded table is empty")
	}

	jp, err := repo.Get("jp")
	if err != nil {
		t.Fatalf("Get(jp) error = %v", err)
	}
	if jp.CountryCode != "JP" || jp.Locale != "ja" || jp.LocalFormat == "" {
		t.Errorf("unexpected JP definition: %+v", jp)
	}
	if !repo.Has("JP") || repo.Has("AO") {
		t.Error("Has() disagrees with the embedded table")
	}
}

func TestRepository_GenericFallback(t *testing.T) {
	repo, err := DefaultRepository()
	if err != nil {
		t.Fatalf("DefaultRepository() error = %v", err)
	}
	ao, err := repo.Get("AO")
	if err != nil {
		t.Fatalf("Get(AO) error = %v", err)
	}
	if ao.Format != GenericFormat || ao.CountryCode != "AO" {
		t.Errorf("expected generic format for AO, got %+v", ao)
	}
}

func TestRepository_UnknownCountry(t *testing.T) {
	repo, err := DefaultRepository()
	if err != nil {
		t.Fatalf("DefaultRepository() error = %v", err)
	}
	for _, code := range []string{"", "XX", "B", "BEL", "419"} {
		_, err := repo.Get(code)
		var lookupErr *LookupError
		if !errors.As(err, &lookupErr) {
			t.Errorf("Get(%q) error = %v, want *LookupError", code, err)
			continue
		}
		if !errors.Is(err, ErrUnknownCountry) {
			t.Errorf("Get(%q) error does not wrap ErrUnknownCountry", code)
		}
	}
}

func TestNewRepository_RejectsInvalidData(t *testing.T) {
	bad := []string{
		"- country_code: BE\n  format: \"%street\"\n",
		"- country_code: BE\n  format: \"%locality\"\n- country_code: be\n  format: \"%locality\"\n",
		"not: [a list",
	}
	for _, data := range bad {
		if _, err := NewRepository([]byte(data)); err == nil {
			t.Errorf("NewRepository(%q) succeeded, want error", data)
		}
	}
}

func TestDefinitions_RoundTrip(t *testing.T) {
	defs, err := ParseDefinitions(strings.NewReader(string(embeddedFormats)))
	if err != nil {
		t.Fatalf("ParseDefinitions() error = %v", err)
	}
	var buf strings.Builder
	if err = WriteDefinitions(&buf, defs); err != nil {
		t.Fatalf("WriteDefinitions() error = %v", err)
	}
	again, err := ParseDefinitions(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ParseDefinitions() on written output error = %v", err)
	}
	if len(again) != len(defs) {
		t.Fatalf("got %d definitions back, want %d", len(again), len(defs))
	}
	for i := range defs {
		if defs[i].Format != again[i].Format || defs[i].LocalFormat != again[i].LocalFormat {
			t.Errorf("definition %s changed after round trip", defs[i].CountryCode)
		}
	}
}

package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CTAG07/Addressline/pkg/formatter"
)

func TestLoadConfig_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Formatter.Delimiter != ", " || cfg.Server.DefaultLangcode != "en" {
		t.Errorf("unexpected defaults: %+v %+v", cfg.Server, cfg.Formatter)
	}
	if _, err = os.Stat(path); err != nil {
		t.Errorf("default config was not written: %v", err)
	}

	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() on written defaults error = %v", err)
	}
	if again.Templates.InlineTemplate != cfg.Templates.InlineTemplate {
		t.Errorf("reloaded template config = %+v", again.Templates)
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"formatter_config": {"delimiter": "", "properties": []}}`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, formatter.ErrInvalidSettings) {
		t.Errorf("LoadConfig() error = %v, want ErrInvalidSettings", err)
	}

	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() expected a parse error")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.Server.BatchWorkers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted zero batch workers")
	}
	cfg = DefaultConfig()
	cfg.Templates = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a missing template config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug": "DEBUG",
		"WARN":  "WARN",
		"error": "ERROR",
		"":      "INFO",
		"loud":  "INFO",
	}
	for in, want := range tests {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

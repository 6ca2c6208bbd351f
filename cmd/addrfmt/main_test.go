package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/Addressline/pkg/addressing"
	"github.com/google/go-cmp/cmp"
)

// execute runs a fresh command tree and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestFormatCmd(t *testing.T) {
	base := []string{"format", "--country", "BE", "--address-line1", "Rue de la Loi 16", "--postal-code", "1000", "--locality", "Bruxelles", "--lang", "fr"}

	tests := []struct {
		name  string
		extra []string
		want  string
	}{
		{name: "inline", want: "Rue de la Loi 16, 1000 Bruxelles, Belgique\n"},
		{name: "delimiter", extra: []string{"--delimiter", " / "}, want: "Rue de la Loi 16 / 1000 Bruxelles / Belgique\n"},
		{name: "properties", extra: []string{"--property", "locality", "--property", "country"}, want: "Bruxelles, Belgique\n"},
		{name: "lines", extra: []string{"--output", "lines"}, want: "Rue de la Loi 16\n1000 Bruxelles\nBelgique\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, append(append([]string{}, base...), tt.extra...)...)
			if err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatCmd_HTML(t *testing.T) {
	got, err := execute(t, "format", "--country", "BE", "--locality", "Bruxelles", "--output", "html", "--block")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	want := `<p class="address address--block" data-country="be">Bruxelles<br>Belgium</p>` + "\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFormatCmd_File(t *testing.T) {
	path := writeFile(t, "addresses.yaml", `
- country_code: BE
  locality: Bruxelles
- country_code: US
  locality: Mountain View
  administrative_area: NY
  postal_code: "10001"
`)
	got, err := execute(t, "format", "--file", path)
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	want := "Bruxelles, Belgium\nMountain View, New York 10001, United States\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatCmd_Errors(t *testing.T) {
	if _, err := execute(t, "format", "--locality", "Bruxelles"); err == nil {
		t.Error("expected an error without a country")
	}
	if _, err := execute(t, "format", "--country", "XX"); !errors.Is(err, addressing.ErrUnknownCountry) {
		t.Errorf("unknown country error = %v, want ErrUnknownCountry", err)
	}
	if _, err := execute(t, "format", "--country", "BE", "--property", "street"); err == nil {
		t.Error("expected an error for an unknown property")
	}
	if _, err := execute(t, "format", "--country", "BE", "--output", "xml"); err == nil {
		t.Error("expected an error for an unknown output mode")
	}
}

func TestImportAndFormats(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "formats.db")
	defs := writeFile(t, "formats.yaml", `
- country_code: NZ
  format: "%locality\n%addressLine1"
`)

	got, err := execute(t, "import", defs, "--db", dbPath)
	if err != nil {
		t.Fatalf("import error = %v", err)
	}
	if got != "imported 1 format definitions\n" {
		t.Errorf("import output = %q", got)
	}

	got, err = execute(t, "format", "--country", "NZ", "--locality", "Auckland", "--address-line1", "1 Queen Street", "--db", dbPath)
	if err != nil {
		t.Fatalf("format error = %v", err)
	}
	if got != "Auckland, 1 Queen Street, New Zealand\n" {
		t.Errorf("format with override = %q", got)
	}

	got, err = execute(t, "formats", "nz", "--db", dbPath)
	if err != nil {
		t.Fatalf("formats NZ error = %v", err)
	}
	parsed, err := addressing.ParseDefinitions(strings.NewReader(got))
	if err != nil || len(parsed) != 1 || parsed[0].Format != "%locality\n%addressLine1" {
		t.Errorf("formats NZ output = %q (%v)", got, err)
	}

	got, err = execute(t, "formats", "--db", dbPath)
	if err != nil {
		t.Fatalf("formats error = %v", err)
	}
	var nzLine string
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "NZ") {
			nzLine = line
		}
	}
	if !strings.Contains(nzLine, "New Zealand") || !strings.Contains(nzLine, "override") {
		t.Errorf("listing line for NZ = %q", nzLine)
	}
	if !strings.Contains(got, "Belgium") {
		t.Errorf("listing misses embedded formats:\n%s", got)
	}
}

func TestImportCmd_RequiresDB(t *testing.T) {
	defs := writeFile(t, "formats.yaml", "- country_code: NZ\n  format: \"%locality\"\n")
	if _, err := execute(t, "import", defs); err == nil {
		t.Error("expected an error without --db")
	}
}

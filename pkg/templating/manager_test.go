package templating

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/CTAG07/Addressline/pkg/formatter"
	"github.com/google/go-cmp/cmp"
)

// setupTestManager creates a TemplateManager with an empty override directory.
func setupTestManager(tb testing.TB) (*TemplateManager, string) {
	tb.Helper()

	dataDir := tb.TempDir()
	templatesPath := filepath.Join(dataDir, "templates")
	if err := os.Mkdir(templatesPath, 0755); err != nil {
		tb.Fatalf("failed to create templates dir: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm, err := NewTemplateManager(logger, DefaultConfig(), dataDir)
	if err != nil {
		tb.Fatalf("NewTemplateManager() failed: %v", err)
	}
	return tm, templatesPath
}

func belgianElement() formatter.Element {
	return formatter.Element{
		CountryCode: "BE",
		Items:       []string{"Rue de la Loi 1", "1000 Bruxelles", "Belgium"},
		Delimiter:   ", ",
	}
}

func TestTemplateManager_RenderInline(t *testing.T) {
	tm, _ := setupTestManager(t)

	got, err := tm.RenderString(belgianElement(), DisplayInline)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	want := `<span class="address address--inline" data-country="be">` +
		`<span class="address__item">Rue de la Loi 1</span>, ` +
		`<span class="address__item">1000 Bruxelles</span>, ` +
		`<span class="address__item">Belgium</span></span>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inline render mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateManager_RenderBlock(t *testing.T) {
	tm, _ := setupTestManager(t)

	got, err := tm.RenderString(belgianElement(), DisplayBlock)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	want := `<p class="address address--block" data-country="be">Rue de la Loi 1<br>1000 Bruxelles<br>Belgium</p>`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("block render mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateManager_RenderEscapesItems(t *testing.T) {
	tm, _ := setupTestManager(t)
	el := formatter.Element{CountryCode: "GB", Items: []string{"Smith & <Sons>"}, Delimiter: ", "}

	got, err := tm.RenderString(el, DisplayBlock)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if !strings.Contains(got, "Smith &amp; &lt;Sons&gt;") {
		t.Errorf("item was not escaped: %s", got)
	}
}

func TestTemplateManager_RenderEmptyElement(t *testing.T) {
	tm, _ := setupTestManager(t)

	got, err := tm.RenderString(formatter.Element{CountryCode: "BE", Delimiter: ", "}, DisplayInline)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	want := `<span class="address address--inline" data-country="be"></span>`
	if got != want {
		t.Errorf("RenderString() = %q, want %q", got, want)
	}
}

func TestTemplateManager_OverrideAndRefresh(t *testing.T) {
	tm, templatesPath := setupTestManager(t)

	override := `{{define "address_inline.tmpl.html"}}[{{join .Items " | "}}]{{end}}`
	if err := os.WriteFile(filepath.Join(templatesPath, "address_inline.tmpl.html"), []byte(override), 0644); err != nil {
		t.Fatalf("failed to write override: %v", err)
	}
	if err := tm.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	got, err := tm.RenderString(belgianElement(), DisplayInline)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if want := "[Rue de la Loi 1 | 1000 Bruxelles | Belgium]"; got != want {
		t.Errorf("RenderString() = %q, want %q", got, want)
	}

	// The block template is untouched by the override.
	got, err = tm.RenderString(belgianElement(), DisplayBlock)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if !strings.HasPrefix(got, "<p ") {
		t.Errorf("block template changed unexpectedly: %s", got)
	}
}

func TestTemplateManager_RefreshRejectsMissingTemplate(t *testing.T) {
	tm, _ := setupTestManager(t)

	cfg := tm.GetConfig()
	cfg.InlineTemplate = "missing.tmpl.html"
	tm.SetConfig(&cfg)

	if err := tm.Refresh(); err == nil {
		t.Error("Refresh() expected an error for an undefined inline template")
	}
}

func TestTemplateManager_RefreshRejectsBrokenTemplate(t *testing.T) {
	tm, templatesPath := setupTestManager(t)

	if err := os.WriteFile(filepath.Join(templatesPath, "broken.tmpl.html"), []byte(`{{if}}`), 0644); err != nil {
		t.Fatalf("failed to write broken template: %v", err)
	}
	if err := tm.Refresh(); err == nil {
		t.Fatal("Refresh() expected a parse error")
	}

	// The previous set stays usable.
	if _, err := tm.RenderString(belgianElement(), DisplayInline); err != nil {
		t.Errorf("RenderString() after failed refresh error = %v", err)
	}
}

func TestTemplateManager_GetTemplateNames(t *testing.T) {
	tm, templatesPath := setupTestManager(t)

	if err := os.WriteFile(filepath.Join(templatesPath, "card.tmpl.html"), []byte(`{{define "card.tmpl.html"}}card{{end}}`), 0644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	if err := tm.Refresh(); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	want := []string{
		"address_block.tmpl.html",
		"address_inline.tmpl.html",
		"address_items.part.html",
		"card.tmpl.html",
	}
	if diff := cmp.Diff(want, tm.GetTemplateNames()); diff != "" {
		t.Errorf("GetTemplateNames() mismatch (-want +got):\n%s", diff)
	}
	if tm.GetTemplateDir() != templatesPath {
		t.Errorf("GetTemplateDir() = %q, want %q", tm.GetTemplateDir(), templatesPath)
	}
}

func TestTemplateManager_ExecuteTemplateString(t *testing.T) {
	tm, _ := setupTestManager(t)

	view := AddressView{Items: []string{"a", "b"}, Delimiter: " / ", WrapperClass: "addr"}
	var buf bytes.Buffer
	if err := tm.ExecuteTemplateString(&buf, `<div>{{template "address_items.part.html" .}}</div>`, view); err != nil {
		t.Fatalf("ExecuteTemplateString() error = %v", err)
	}
	want := `<div><span class="addr__item">a</span> / <span class="addr__item">b</span></div>`
	if got := buf.String(); got != want {
		t.Errorf("ExecuteTemplateString() = %q, want %q", got, want)
	}

	// Previewing must not leak into the loaded set.
	if err := tm.ExecuteTemplateString(io.Discard, `{{define "address_items.part.html"}}x{{end}}`, view); err != nil {
		t.Fatalf("ExecuteTemplateString() error = %v", err)
	}
	got, err := tm.RenderString(belgianElement(), DisplayInline)
	if err != nil {
		t.Fatalf("RenderString() error = %v", err)
	}
	if !strings.Contains(got, "address__item") {
		t.Errorf("preview changed the loaded partial: %s", got)
	}

	if err := tm.ExecuteTemplateString(io.Discard, `{{if}}`, nil); err == nil {
		t.Error("ExecuteTemplateString() expected a parse error")
	}
}

func TestTemplateManager_ConcurrentRender(t *testing.T) {
	tm, _ := setupTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				if err := tm.Refresh(); err != nil {
					t.Errorf("Refresh() error = %v", err)
				}
				return
			}
			if _, err := tm.RenderString(belgianElement(), DisplayInline); err != nil {
				t.Errorf("RenderString() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestParseDisplay(t *testing.T) {
	tests := map[string]Display{
		"":        DisplayInline,
		"inline":  DisplayInline,
		"block":   DisplayBlock,
		" BLOCK ": DisplayBlock,
		"other":   DisplayInline,
	}
	for in, want := range tests {
		if got := ParseDisplay(in); got != want {
			t.Errorf("ParseDisplay(%q) = %q, want %q", in, got, want)
		}
	}
}

package templating

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/CTAG07/Addressline/pkg/formatter"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// Display selects how a formatted address is laid out.
type Display string

const (
	DisplayInline Display = "inline"
	DisplayBlock  Display = "block"
)

// ParseDisplay maps a user supplied value to a Display, defaulting to inline.
func ParseDisplay(s string) Display {
	if strings.EqualFold(strings.TrimSpace(s), string(DisplayBlock)) {
		return DisplayBlock
	}
	return DisplayInline
}

// AddressView is the data handed to address templates.
type AddressView struct {
	Items        []string
	Delimiter    string
	CountryCode  string
	Local        bool
	WrapperClass string
}

// TemplateManager is the central controller for address rendering.
// It manages the template set and its configuration and is responsible for
// loading, parsing and executing templates. All methods are concurrent-safe.
type TemplateManager struct {
	logger         *slog.Logger
	config         *TemplateConfig
	templates      *template.Template
	cleanTemplates *template.Template
	templateNames  []string
	funcMap        template.FuncMap
	templateDir    string
	mu             sync.RWMutex
}

// NewTemplateManager creates a TemplateManager reading overrides from the
// "templates" subdirectory of dataDir. The directory may be missing, in which
// case only the embedded templates are available. It performs an initial
// Refresh.
func NewTemplateManager(logger *slog.Logger, config *TemplateConfig, dataDir string) (*TemplateManager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	tm := &TemplateManager{
		logger:      logger,
		config:      config,
		templateDir: filepath.Join(dataDir, "templates"),
	}
	tm.funcMap = tm.makeFuncMap()

	if err := tm.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized", "template_dir", tm.templateDir)
	return tm, nil
}

func (tm *TemplateManager) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		"join":     join,
		"last":     last,
		"add":      add,
		"sub":      sub,
		"inc":      inc,
		"dec":      dec,
		"isSet":    isSet,
		"lower":    strings.ToLower,
		"upper":    strings.ToUpper,
		"cssClass": cssClass,
	}
}

// SetConfig applies a new configuration. The referenced templates are
// checked on the next Refresh.
func (tm *TemplateManager) SetConfig(config *TemplateConfig) {
	if config == nil {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.config = config
}

// Refresh reloads the embedded templates and the overrides from disk. It
// fails if the configured inline or block template does not exist, leaving
// the previously loaded set in place.
func (tm *TemplateManager) Refresh() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.logger.Info("Loading template files...")
	parsed, err := template.New("").Funcs(tm.funcMap).ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		tm.logger.Error("failed to parse embedded templates", "error", err)
		return err
	}

	for _, pattern := range []string{"*.tmpl.html", "*.part.html"} {
		files, err := filepath.Glob(filepath.Join(tm.templateDir, pattern))
		if err != nil {
			return err
		}
		if len(files) == 0 {
			continue
		}
		if parsed, err = parsed.ParseFiles(files...); err != nil {
			tm.logger.Error("failed to parse template files", "pattern", pattern, "error", err)
			return err
		}
	}

	var names []string
	for _, t := range parsed.Templates() {
		// The root template has no name and is never executed.
		if strings.HasSuffix(t.Name(), ".html") {
			names = append(names, t.Name())
		}
	}

	for _, required := range []string{tm.config.InlineTemplate, tm.config.BlockTemplate} {
		if parsed.Lookup(required) == nil {
			return fmt.Errorf("configured template %q is not defined", required)
		}
	}

	// Create a clean clone for string executions after all parsing is complete.
	clean, err := parsed.Clone()
	if err != nil {
		tm.logger.Error("failed to create a clean clone of templates", "error", err)
		return err
	}

	tm.templates = parsed
	tm.cleanTemplates = clean
	tm.templateNames = names
	tm.logger.Info("Loaded template and partial files", "count", len(names))
	return nil
}

// Execute renders a specific template by name, writing the output to w.
func (tm *TemplateManager) Execute(w io.Writer, name string, data any) error {
	if name == "" {
		return nil
	}
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templates.ExecuteTemplate(w, name, data)
}

// Render writes one formatted address using the configured inline or block
// template.
func (tm *TemplateManager) Render(w io.Writer, el formatter.Element, display Display) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	name := tm.config.InlineTemplate
	if display == DisplayBlock {
		name = tm.config.BlockTemplate
	}
	view := AddressView{
		Items:        el.Items,
		Delimiter:    el.Delimiter,
		CountryCode:  el.CountryCode,
		Local:        el.Local,
		WrapperClass: tm.config.WrapperClass,
	}
	return tm.templates.ExecuteTemplate(w, name, view)
}

// RenderString is Render into a string.
func (tm *TemplateManager) RenderString(el formatter.Element, display Display) (string, error) {
	var buf bytes.Buffer
	if err := tm.Render(&buf, el, display); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GetConfig returns a copy of the current configuration.
func (tm *TemplateManager) GetConfig() TemplateConfig {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return *tm.config
}

// GetTemplateNames returns the names of all loaded templates, partials
// included.
func (tm *TemplateManager) GetTemplateNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	names := make([]string, len(tm.templateNames))
	copy(names, tm.templateNames)
	sort.Strings(names)
	return names
}

// GetTemplateDir returns the directory overrides are read from.
func (tm *TemplateManager) GetTemplateDir() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templateDir
}

// ExecuteTemplateString parses and executes a raw template string using the
// manager's function map and loaded partials. It is meant for previewing
// templates without saving them to disk.
func (tm *TemplateManager) ExecuteTemplateString(w io.Writer, content string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	// Clone the clean, unexecuted template set to avoid race conditions and execution state issues.
	tempSet, err := tm.cleanTemplates.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone clean templates for string execution: %w", err)
	}

	t, err := tempSet.Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse string template: %w", err)
	}
	return t.Execute(w, data)
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/CTAG07/Addressline/pkg/formatter"
	"github.com/CTAG07/Addressline/pkg/templating"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the HTTP servers.
type ServerConfig struct {
	ServerAddr      string            `json:"server_addr"`
	ApiAddr         string            `json:"api_addr"`
	LogLevel        string            `json:"log_level"`
	DataDir         string            `json:"data_dir"`
	DatabasePath    string            `json:"database_path"`
	DefaultLangcode string            `json:"default_langcode"`
	BatchLimit      int               `json:"batch_limit"`
	BatchWorkers    int               `json:"batch_workers"`
	Headers         map[string]string `json:"headers"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig              `json:"server_config"`
	Formatter *formatter.Settings        `json:"formatter_config"`
	Templates *templating.TemplateConfig `json:"template_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:      ":7277",
		ApiAddr:         ":7278",
		LogLevel:        "info",
		DataDir:         "./data",
		DatabasePath:    "./data/addressline.db",
		DefaultLangcode: "en",
		BatchLimit:      500,
		BatchWorkers:    8,
		Headers: map[string]string{
			"Cache-Control":           "no-cache",
			"Content-Security-Policy": "default-src 'self'; style-src 'self' 'unsafe-inline';",
			"Content-Type":            "text/html; charset=utf-8",
		},
	}
}

// DefaultConfig returns the configuration written on first start.
func DefaultConfig() *Config {
	settings := formatter.DefaultSettings()
	return &Config{
		Server:    DefaultServerConfig(),
		Formatter: &settings,
		Templates: templating.DefaultConfig(),
	}
}

// Validate checks a configuration before it is applied.
func (c *Config) Validate() error {
	if c.Server == nil || c.Formatter == nil || c.Templates == nil {
		return errors.New("server_config, formatter_config and template_config are required")
	}
	if c.Server.BatchLimit <= 0 {
		return fmt.Errorf("batch_limit must be positive, got %d", c.Server.BatchLimit)
	}
	if c.Server.BatchWorkers <= 0 {
		return fmt.Errorf("batch_workers must be positive, got %d", c.Server.BatchWorkers)
	}
	if err := c.Formatter.Validate(); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return config, nil
}

// parseLogLevel maps the configured level name to a slog level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigManager handles thread-safe access to configuration and pushes
// updates to the components built from it.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
	tm         *templating.TemplateManager
	svc        *AddressService
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}, nil
}

// SetTemplateManager registers the template manager to receive config updates.
func (cm *ConfigManager) SetTemplateManager(tm *templating.TemplateManager) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.tm = tm
	if tm != nil {
		tm.SetConfig(cm.config.Templates)
	}
}

// SetAddressService registers the address service to receive formatter
// settings updates.
func (cm *ConfigManager) SetAddressService(svc *AddressService) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.svc = svc
}

// SetLogger sets the logger.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config
}

// Update validates and applies a new configuration, then saves it to disk.
// A configuration rejected by the template manager or the address service
// leaves both on their previous settings.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.tm != nil {
		oldTmplConfig := cm.config.Templates

		cm.tm.SetConfig(newConfig.Templates)
		if err := cm.tm.Refresh(); err != nil {
			cm.tm.SetConfig(oldTmplConfig)
			_ = cm.tm.Refresh()
			return fmt.Errorf("template configuration rejected: %w", err)
		}
	}
	if cm.svc != nil {
		if err := cm.svc.SetSettings(*newConfig.Formatter); err != nil {
			if cm.tm != nil {
				cm.tm.SetConfig(cm.config.Templates)
				_ = cm.tm.Refresh()
			}
			return fmt.Errorf("formatter configuration rejected: %w", err)
		}
		cm.svc.SetServerOptions(newConfig.Server)
	}

	*cm.config = newConfig

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	cm.logger.Info("Configuration updated", "path", cm.configPath)
	return nil
}

// UpdateFormatter replaces only the formatter settings.
func (cm *ConfigManager) UpdateFormatter(settings formatter.Settings) error {
	cfg := cm.Get()
	cfg.Formatter = &settings
	return cm.Update(cfg)
}

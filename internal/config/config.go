// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/futurebot-ai/chatwidget/internal/util"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultWelcomeMessage   = "Hi there! How can I help?"
	DefaultErrorMessage     = "Oops! There seems to be an error. Please try again."
	DefaultWebRequestSuffix = "lambda-url.eu-central-1.on.aws"
	DefaultCitationScore    = 0.822
)

// Placement values.
const (
	PlacementInline = "inline"
	PlacementBubble = "bubble"
)

// Storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete widget configuration.
type Config struct {
	Version string `toml:"version" yaml:"version" json:"version"`

	Backend BackendConfig `toml:"backend" yaml:"backend" json:"backend"`
	Widget  WidgetConfig  `toml:"widget" yaml:"widget" json:"widget"`
	Storage StorageConfig `toml:"storage" yaml:"storage" json:"storage"`
	Logging LoggingConfig `toml:"logging" yaml:"logging" json:"logging"`
	UI      UIConfig      `toml:"ui" yaml:"ui" json:"ui"`
}

// BackendConfig locates the chat backend.
type BackendConfig struct {
	Host             string `toml:"host" yaml:"host" json:"host"`
	ChatflowID       string `toml:"chatflow_id" yaml:"chatflow_id" json:"chatflow_id"`
	WebRequestSuffix string `toml:"web_request_suffix" yaml:"web_request_suffix" json:"web_request_suffix"`
	TimeoutSecs      int    `toml:"timeout_secs" yaml:"timeout_secs" json:"timeout_secs"`
	ProbeTimeoutSecs int    `toml:"probe_timeout_secs" yaml:"probe_timeout_secs" json:"probe_timeout_secs"`
	// StreamGraceSecs is how long a streamed turn waits for its start event
	// once the HTTP reply is in before the reply is shown instead.
	StreamGraceSecs int `toml:"stream_grace_secs" yaml:"stream_grace_secs" json:"stream_grace_secs"`
}

// WidgetConfig mirrors the options an embedding page passes to the widget.
type WidgetConfig struct {
	WelcomeMessage    string  `toml:"welcome_message" yaml:"welcome_message" json:"welcome_message"`
	ErrorMessage      string  `toml:"error_message" yaml:"error_message" json:"error_message"`
	Placement         string  `toml:"placement" yaml:"placement" json:"placement"`
	BotID             string  `toml:"bot_id" yaml:"bot_id" json:"bot_id"`
	PineconeNamespace string  `toml:"pinecone_namespace" yaml:"pinecone_namespace" json:"pinecone_namespace"`
	ClearOnRefresh    bool    `toml:"clear_on_refresh" yaml:"clear_on_refresh" json:"clear_on_refresh"`
	UseTimezone       bool    `toml:"use_timezone" yaml:"use_timezone" json:"use_timezone"`
	ShowClearButton   bool    `toml:"show_clear_button" yaml:"show_clear_button" json:"show_clear_button"`
	PolicyURL         string  `toml:"policy_url" yaml:"policy_url" json:"policy_url"`
	UseCalendly       bool    `toml:"use_calendly" yaml:"use_calendly" json:"use_calendly"`
	CalendlyURL       string  `toml:"calendly_url" yaml:"calendly_url" json:"calendly_url"`
	CitationThreshold float64 `toml:"citation_threshold" yaml:"citation_threshold" json:"citation_threshold"`

	// Override is forwarded verbatim to the backend as overrideConfig.
	Override map[string]any `toml:"override" yaml:"override" json:"override,omitempty"`
}

// StorageConfig selects where sessions are persisted.
type StorageConfig struct {
	Backend    string `toml:"backend" yaml:"backend" json:"backend"`
	Dir        string `toml:"dir" yaml:"dir" json:"dir"`
	SQLitePath string `toml:"sqlite_path" yaml:"sqlite_path" json:"sqlite_path"`
	RedisAddr  string `toml:"redis_addr" yaml:"redis_addr" json:"redis_addr"`
	RedisDB    int    `toml:"redis_db" yaml:"redis_db" json:"redis_db"`
}

// LoggingConfig controls the zerolog setup.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Format string `toml:"format" yaml:"format" json:"format"` // console | json
	File   string `toml:"file" yaml:"file" json:"file"`
}

// UIConfig holds terminal front-end settings.
type UIConfig struct {
	Theme     string `toml:"theme" yaml:"theme" json:"theme"` // auto | dark | light
	ShowBadge bool   `toml:"show_badge" yaml:"show_badge" json:"show_badge"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Backend: BackendConfig{
			Host:             "http://localhost:3000",
			WebRequestSuffix: DefaultWebRequestSuffix,
			TimeoutSecs:      120,
			ProbeTimeoutSecs: 10,
			StreamGraceSecs:  10,
		},
		Widget: WidgetConfig{
			WelcomeMessage:    DefaultWelcomeMessage,
			ErrorMessage:      DefaultErrorMessage,
			Placement:         PlacementBubble,
			CitationThreshold: DefaultCitationScore,
		},
		Storage: StorageConfig{
			Backend: StorageFile,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		UI: UIConfig{
			Theme:     "auto",
			ShowBadge: true,
		},
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// ProbeTimeout returns the streaming probe timeout.
func (b BackendConfig) ProbeTimeout() time.Duration {
	return time.Duration(b.ProbeTimeoutSecs) * time.Second
}

// StreamGrace returns the wait for a stream start after the HTTP reply.
func (b BackendConfig) StreamGrace() time.Duration {
	return time.Duration(b.StreamGraceSecs) * time.Second
}

// Inline reports whether the widget is embedded inline rather than as an
// overlay bubble.
func (w WidgetConfig) Inline() bool {
	return w.Placement == PlacementInline
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CHATWIDGET_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chatwidget"), nil
}

// ConfigPaths returns candidate config files in load order.
func ConfigPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.toml"),
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.json"),
	}, nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the first config file that exists (TOML, then YAML, then JSON),
// falling back to defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads a specific file, picking the decoder by extension.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := decode(cfg, path, data); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func decode(cfg *Config, path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to decode TOML: %w", err)
		}
	}
	return nil
}

// SetDefaults fills zero values that have a sensible default.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Backend.WebRequestSuffix == "" {
		c.Backend.WebRequestSuffix = d.Backend.WebRequestSuffix
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if c.Backend.ProbeTimeoutSecs == 0 {
		c.Backend.ProbeTimeoutSecs = d.Backend.ProbeTimeoutSecs
	}
	if c.Backend.StreamGraceSecs == 0 {
		c.Backend.StreamGraceSecs = d.Backend.StreamGraceSecs
	}
	if c.Widget.WelcomeMessage == "" {
		c.Widget.WelcomeMessage = d.Widget.WelcomeMessage
	}
	if c.Widget.ErrorMessage == "" {
		c.Widget.ErrorMessage = d.Widget.ErrorMessage
	}
	if c.Widget.Placement == "" {
		c.Widget.Placement = d.Widget.Placement
	}
	if c.Widget.CitationThreshold == 0 {
		c.Widget.CitationThreshold = d.Widget.CitationThreshold
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path, encoding by extension. Files are created 0600.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		buf.Write(data)
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		enc.Close()
	default:
		buf.WriteString("# chatwidget configuration file\n\n")
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Backend.Host == "" {
		errs = append(errs, ValidationError{"backend.host", "must not be empty"})
	} else if u, err := url.Parse(c.Backend.Host); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{"backend.host", "must be an http(s) URL"})
	}
	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"backend.timeout_secs", "must not be negative"})
	}
	if c.Backend.ProbeTimeoutSecs < 0 {
		errs = append(errs, ValidationError{"backend.probe_timeout_secs", "must not be negative"})
	}
	if c.Backend.StreamGraceSecs < 0 {
		errs = append(errs, ValidationError{"backend.stream_grace_secs", "must not be negative"})
	}

	switch c.Widget.Placement {
	case PlacementInline, PlacementBubble:
	default:
		errs = append(errs, ValidationError{"widget.placement", "must be inline or bubble"})
	}
	if c.Widget.CitationThreshold < 0 {
		errs = append(errs, ValidationError{"widget.citation_threshold", "must not be negative"})
	}
	if c.Widget.PolicyURL != "" {
		if u, err := url.Parse(c.Widget.PolicyURL); err != nil || u.Scheme == "" {
			errs = append(errs, ValidationError{"widget.policy_url", "must be an absolute URL"})
		}
	}

	switch c.Storage.Backend {
	case StorageFile, StorageSQLite, StorageMemory:
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, ValidationError{"storage.redis_addr", "required for the redis backend"})
		}
	default:
		errs = append(errs, ValidationError{"storage.backend", "must be file, sqlite, redis or memory"})
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{"logging.format", "must be console or json"})
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{"ui.theme", "must be auto, dark or light"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - CHATWIDGET_HOST: backend.host
//   - CHATWIDGET_CHATFLOW_ID: backend.chatflow_id
//   - CHATWIDGET_BOT_ID: widget.bot_id
//   - CHATWIDGET_PLACEMENT: widget.placement
//   - CHATWIDGET_CLEAR_ON_REFRESH: widget.clear_on_refresh ("1"/"true")
//   - CHATWIDGET_STORAGE: storage.backend
//   - CHATWIDGET_REDIS_ADDR: storage.redis_addr
//   - CHATWIDGET_LOG_LEVEL: logging.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHATWIDGET_HOST"); v != "" {
		c.Backend.Host = v
	}
	if v := os.Getenv("CHATWIDGET_CHATFLOW_ID"); v != "" {
		c.Backend.ChatflowID = v
	}
	if v := os.Getenv("CHATWIDGET_BOT_ID"); v != "" {
		c.Widget.BotID = v
	}
	if v := os.Getenv("CHATWIDGET_PLACEMENT"); v != "" {
		c.Widget.Placement = v
	}
	if v := os.Getenv("CHATWIDGET_CLEAR_ON_REFRESH"); v != "" {
		b, err := strconv.ParseBool(v)
		c.Widget.ClearOnRefresh = err == nil && b
	}
	if v := os.Getenv("CHATWIDGET_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("CHATWIDGET_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("CHATWIDGET_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

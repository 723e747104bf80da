// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/logging"
	"github.com/jeranaias/ollamacode/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ollamacode configuration.
type Config struct {
	// DefaultModel is preselected in the model picker and used by `ask`.
	DefaultModel string `toml:"default_model" json:"default_model" yaml:"default_model"`

	Server  ServerConfig  `toml:"server" json:"server" yaml:"server"`
	Extract ExtractConfig `toml:"extract" json:"extract" yaml:"extract"`
	Export  ExportConfig  `toml:"export" json:"export" yaml:"export"`
	UI      UIConfig      `toml:"ui" json:"ui" yaml:"ui"`
	Log     LogConfig     `toml:"log" json:"log" yaml:"log"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// ServerConfig contains Ollama connection settings.
type ServerConfig struct {
	// URL is the Ollama base URL.
	URL string `toml:"url" json:"url" yaml:"url"`
	// ConnectTimeoutSecs bounds dialing the server.
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs" yaml:"connect_timeout_secs"`
	// IdleTimeoutSecs aborts a stream that sends nothing for this long. 0 disables.
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs" yaml:"idle_timeout_secs"`
	// Preflight checks that the server answers before each request.
	Preflight bool `toml:"preflight" json:"preflight" yaml:"preflight"`
}

// ExtractConfig selects code block filename resolution behaviour.
type ExtractConfig struct {
	// Scope is "preceding" or "response".
	Scope string `toml:"scope" json:"scope" yaml:"scope"`
	// Fallback is "index" or "total".
	Fallback string `toml:"fallback" json:"fallback" yaml:"fallback"`
}

// ExportConfig contains code block export settings.
type ExportConfig struct {
	// Dir is where relative destination paths are resolved.
	Dir string `toml:"dir" json:"dir" yaml:"dir"`
	// Overwrite allows replacing existing files.
	Overwrite bool `toml:"overwrite" json:"overwrite" yaml:"overwrite"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme" yaml:"theme"`
	// SyntaxStyle is a chroma style name for code blocks.
	SyntaxStyle string `toml:"syntax_style" json:"syntax_style" yaml:"syntax_style"`
	// MaxFPS caps streaming redraws per second.
	MaxFPS int `toml:"max_fps" json:"max_fps" yaml:"max_fps"`
	// LineNumbers shows line numbers in code blocks.
	LineNumbers bool `toml:"line_numbers" json:"line_numbers" yaml:"line_numbers"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" json:"level" yaml:"level"`
	// File is the JSON log file. Empty means ~/.ollamacode/ollamacode.log for
	// the TUI and no file for the CLI.
	File string `toml:"file" json:"file" yaml:"file"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is host:port for /metrics. Empty disables the endpoint.
	Addr string `toml:"addr" json:"addr" yaml:"addr"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultModel is the model preselected when nothing else is configured.
const DefaultModel = "deepseek-coder-v2:latest"

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DefaultModel: DefaultModel,
		Server: ServerConfig{
			URL:                "http://127.0.0.1:11434",
			ConnectTimeoutSecs: 5,
			IdleTimeoutSecs:    300,
			Preflight:          true,
		},
		Extract: ExtractConfig{
			Scope:    "preceding",
			Fallback: "index",
		},
		Export: ExportConfig{
			Dir:       ".",
			Overwrite: false,
		},
		UI: UIConfig{
			Theme:       "auto",
			SyntaxStyle: "monokai",
			MaxFPS:      30,
			LineNumbers: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConnectTimeout returns the dial timeout as a duration.
func (s ServerConfig) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutSecs) * time.Second
}

// IdleTimeout returns the stream idle timeout as a duration.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSecs) * time.Second
}

// ExtractOptions converts the extract section into extractor options.
// The section must have passed Validate.
func (c *Config) ExtractOptions() []extract.Option {
	scope, _ := extract.ParseScope(c.Extract.Scope)
	fallback, _ := extract.ParseFallback(c.Extract.Fallback)
	return []extract.Option{extract.WithScope(scope), extract.WithFallback(fallback)}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ollamacode configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ollamacode"), nil
}

// ConfigPath returns the path of the config file with the given extension
// ("toml", "yaml" or "json").
func ConfigPath(ext string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config."+ext), nil
}

// SearchPaths returns the default config locations in precedence order.
func SearchPaths() []string {
	var paths []string
	for _, ext := range []string{"toml", "yaml", "json"} {
		if p, err := ConfigPath(ext); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load finds the first existing config file in SearchPaths and loads it,
// falling back to defaults. .env and environment overrides apply either way.
// It returns the path used ("" for defaults).
func Load() (*Config, string, error) {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFromPath(path)
			return cfg, path, err
		}
	}

	cfg := Default()
	if err := finish(cfg); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. The format follows the file extension; unknown extensions
// are read as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finish applies .env and environment overrides, then defaults and
// validation.
func finish(cfg *Config) error {
	if err := LoadDotEnv(); err != nil {
		return err
	}
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in TOML file: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadYAML decodes a YAML file over cfg. Unknown keys are rejected.
func LoadYAML(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadDotEnv loads .env from the working directory into the process
// environment without replacing variables that are already set. A missing
// file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaults.DefaultModel
	}
	if cfg.Server.URL == "" {
		cfg.Server.URL = defaults.Server.URL
	}
	if cfg.Server.ConnectTimeoutSecs == 0 {
		cfg.Server.ConnectTimeoutSecs = defaults.Server.ConnectTimeoutSecs
	}
	if cfg.Extract.Scope == "" {
		cfg.Extract.Scope = defaults.Extract.Scope
	}
	if cfg.Extract.Fallback == "" {
		cfg.Extract.Fallback = defaults.Extract.Fallback
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = defaults.Export.Dir
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.SyntaxStyle == "" {
		cfg.UI.SyntaxStyle = defaults.UI.SyntaxStyle
	}
	if cfg.UI.MaxFPS == 0 {
		cfg.UI.MaxFPS = defaults.UI.MaxFPS
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path in the format of its extension.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func Save(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		var sb strings.Builder
		sb.WriteString("# ollamacode configuration file\n#\n")
		sb.WriteString("# Environment variables OLLAMACODE_* override these values.\n\n")
		err = toml.NewEncoder(&sb).Encode(cfg)
		data = []byte(sb.String())
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0644, true); err != nil {
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.DefaultModel) == "" {
		add("default_model", "must not be empty")
	}

	if u, err := url.Parse(c.Server.URL); err != nil {
		add("server.url", "invalid URL: %v", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		add("server.url", "scheme must be http or https, got %q", u.Scheme)
	} else if u.Host == "" {
		add("server.url", "missing host")
	}
	if c.Server.ConnectTimeoutSecs < 1 || c.Server.ConnectTimeoutSecs > 300 {
		add("server.connect_timeout_secs", "must be between 1 and 300, got %d", c.Server.ConnectTimeoutSecs)
	}
	if c.Server.IdleTimeoutSecs < 0 {
		add("server.idle_timeout_secs", "must be 0 (disabled) or positive, got %d", c.Server.IdleTimeoutSecs)
	}

	if _, err := extract.ParseScope(c.Extract.Scope); err != nil {
		add("extract.scope", "must be \"preceding\" or \"response\", got %q", c.Extract.Scope)
	}
	if _, err := extract.ParseFallback(c.Extract.Fallback); err != nil {
		add("extract.fallback", "must be \"index\" or \"total\", got %q", c.Extract.Fallback)
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "must be auto, dark or light, got %q", c.UI.Theme)
	}
	if !slices.Contains(styles.Names(), c.UI.SyntaxStyle) {
		add("ui.syntax_style", "unknown chroma style %q", c.UI.SyntaxStyle)
	}
	if c.UI.MaxFPS < 1 || c.UI.MaxFPS > 120 {
		add("ui.max_fps", "must be between 1 and 120, got %d", c.UI.MaxFPS)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "%v", err)
	}

	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			add("metrics.addr", "must be host:port: %v", err)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - OLLAMACODE_URL: overrides server.url
//   - OLLAMACODE_MODEL: overrides default_model
//   - OLLAMACODE_LOG_LEVEL: overrides log.level
//   - OLLAMACODE_THEME: overrides ui.theme
//   - OLLAMACODE_EXTRACT_SCOPE: overrides extract.scope
//   - OLLAMACODE_METRICS_ADDR: overrides metrics.addr
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("OLLAMACODE_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("OLLAMACODE_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("OLLAMACODE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("OLLAMACODE_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("OLLAMACODE_EXTRACT_SCOPE"); v != "" {
		c.Extract.Scope = v
	}
	if v := os.Getenv("OLLAMACODE_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.max_fps").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(part[1:])
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from a typed value or its string form.
func setFieldValue(field reflect.Value, value interface{}) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid boolean %q", s)
			}
			field.SetBool(b)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer %q", s)
			}
			field.SetInt(n)
			return nil
		}
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}

	v := reflect.ValueOf(value)
	if !v.Type().ConvertibleTo(field.Type()) {
		return fmt.Errorf("cannot assign %T to %s", value, field.Type())
	}
	field.Set(v.Convert(field.Type()))
	return nil
}

// GetAllKeys returns every settable key in dot notation.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration as TOML.
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Sprintf("error encoding config: %v", err)
	}
	return sb.String()
}

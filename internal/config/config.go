// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/aostock-tui/internal/util"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete aostock configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Agent server (LangGraph-compatible API)
	Server ServerConfig `toml:"server" json:"server"`

	// Remote financial data service, forwarded to the agents
	Data DataConfig `toml:"data" json:"data"`

	// Models used by the server-side agents
	Models ModelsConfig `toml:"models" json:"models"`

	Mentions MentionsConfig `toml:"mentions" json:"mentions"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// ServerConfig locates the agent server.
type ServerConfig struct {
	APIURL      string `toml:"api_url" json:"api_url"`
	AssistantID string `toml:"assistant_id" json:"assistant_id"`
	// Optional; only deployed graphs require a key.
	APIKey string `toml:"api_key,omitempty" json:"api_key,omitempty"`
}

// DataConfig locates the financial data service.
type DataConfig struct {
	APIURL string `toml:"api_url" json:"api_url"`
	APIKey string `toml:"api_key" json:"api_key"`
}

// ModelConfig selects an LLM for one agent role.
type ModelConfig struct {
	Model   string `toml:"model" json:"model"`
	APIKey  string `toml:"api_key" json:"api_key"`
	APIBase string `toml:"api_base,omitempty" json:"api_base,omitempty"`
}

// ModelsConfig groups the per-role model settings.
type ModelsConfig struct {
	IntentRecognition ModelConfig `toml:"intent_recognition" json:"intent_recognition"`
	Analysis          ModelConfig `toml:"analysis" json:"analysis"`
}

// MentionsConfig configures the @mention persona directory.
type MentionsConfig struct {
	// DirectoryFile replaces the built-in personas (YAML, TOML or JSON).
	DirectoryFile string `toml:"directory_file,omitempty" json:"directory_file,omitempty"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	Theme           string `toml:"theme" json:"theme"`
	RenderMarkdown  bool   `toml:"render_markdown" json:"render_markdown"`
	PopupMaxVisible int    `toml:"popup_max_visible" json:"popup_max_visible"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Level      string `toml:"level" json:"level"`
	File       string `toml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a configuration with the stock settings.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			APIURL:      "http://localhost:2024",
			AssistantID: "agent",
		},
		Data: DataConfig{
			APIURL: "http://127.0.0.1:8000/",
			APIKey: "test",
		},
		Models: ModelsConfig{
			IntentRecognition: ModelConfig{Model: "gpt-4o-mini"},
			Analysis:          ModelConfig{Model: "gpt-4o"},
		},
		UI: UIConfig{
			Theme:           "auto",
			RenderMarkdown:  true,
			PopupMaxVisible: 8,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the aostock configuration directory. AOSTOCK_HOME
// overrides the default of ~/.aostock.
func ConfigDir() (string, error) {
	if dir := os.Getenv("AOSTOCK_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aostock"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// ensureSecurePermissions narrows config files to 0600; they hold API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config directory.
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
//
// A file that fails to decode is reported through the returned error
// alongside a usable default config.
func Load() (*Config, error) {
	var loadErr error

	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg, err := LoadFromPath(path)
		if err == nil {
			return cfg, nil
		}
		if loadErr == nil {
			loadErr = err
		}
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file with full
// validation. Files ending in .json are decoded as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	// Files without a version predate versioning and go through Migrate.
	cfg.Version = ""

	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// finish applies env overrides, migration, defaults and validation.
func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	if err := c.Migrate(); err != nil {
		return fmt.Errorf("config migration failed: %w", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# aostock configuration file\n")
	b.WriteString("# Generated by aostock - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0o600); err != nil {
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

var (
	validThemes    = map[string]bool{"auto": true, "dark": true, "light": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate checks the settings the client cannot run without. Credentials
// the server needs are reported by Missing instead.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if strings.TrimSpace(c.Server.APIURL) == "" {
		errs = append(errs, ValidationError{Field: "server.api_url", Message: "agent server API URL is required"})
	} else if err := validateHTTPURL(c.Server.APIURL); err != nil {
		errs = append(errs, ValidationError{Field: "server.api_url", Message: err.Error()})
	}

	if strings.TrimSpace(c.Server.AssistantID) == "" {
		errs = append(errs, ValidationError{Field: "server.assistant_id", Message: "assistant ID is required"})
	}

	if strings.TrimSpace(c.Data.APIURL) == "" {
		errs = append(errs, ValidationError{Field: "data.api_url", Message: "financial data API URL is required"})
	} else if err := validateHTTPURL(c.Data.APIURL); err != nil {
		errs = append(errs, ValidationError{Field: "data.api_url", Message: err.Error()})
	}

	for field, m := range map[string]ModelConfig{
		"models.intent_recognition": c.Models.IntentRecognition,
		"models.analysis":           c.Models.Analysis,
	} {
		if m.APIBase != "" {
			if err := validateHTTPURL(m.APIBase); err != nil {
				errs = append(errs, ValidationError{Field: field + ".api_base", Message: err.Error()})
			}
		}
	}

	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if c.UI.PopupMaxVisible < 1 || c.UI.PopupMaxVisible > 50 {
		errs = append(errs, ValidationError{
			Field:   "ui.popup_max_visible",
			Message: fmt.Sprintf("must be 1-50, got %d", c.UI.PopupMaxVisible),
		})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		errs = append(errs, ValidationError{Field: "log", Message: "max_size_mb and max_backups cannot be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %q", raw)
	}
	return nil
}

// Missing lists the settings the agent server requires that are still empty,
// as dot-notation keys. The UI prompts for these before the first run.
func (c *Config) Missing() []string {
	var missing []string
	if c.Data.APIKey == "" {
		missing = append(missing, "data.api_key")
	}
	if c.Models.IntentRecognition.APIKey == "" {
		missing = append(missing, "models.intent_recognition.api_key")
	}
	if c.Models.Analysis.APIKey == "" {
		missing = append(missing, "models.analysis.api_key")
	}
	return missing
}

// SetDefaults fills zero values left by partial config files.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.APIURL == "" {
		c.Server.APIURL = d.Server.APIURL
	}
	if c.Server.AssistantID == "" {
		c.Server.AssistantID = d.Server.AssistantID
	}
	if c.Data.APIURL == "" {
		c.Data.APIURL = d.Data.APIURL
	}
	if c.Models.IntentRecognition.Model == "" {
		c.Models.IntentRecognition.Model = d.Models.IntentRecognition.Model
	}
	if c.Models.Analysis.Model == "" {
		c.Models.Analysis.Model = d.Models.Analysis.Model
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.PopupMaxVisible == 0 {
		c.UI.PopupMaxVisible = d.UI.PopupMaxVisible
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
}

// Migrate upgrades older config files to CurrentVersion.
func (c *Config) Migrate() error {
	switch c.Version {
	case "", "0":
		// Pre-versioned files stored URLs with trailing slashes, which
		// produced "//threads" request paths.
		c.Server.APIURL = strings.TrimRight(c.Server.APIURL, "/")
		c.Version = CurrentVersion
	case CurrentVersion:
	default:
		return fmt.Errorf("unsupported config version %q", c.Version)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - AOSTOCK_SERVER_URL: overrides server.api_url
//   - AOSTOCK_ASSISTANT_ID: overrides server.assistant_id
//   - AOSTOCK_API_KEY: overrides server.api_key
//   - AOSTOCK_DATA_URL: overrides data.api_url
//   - AOSTOCK_DATA_KEY: overrides data.api_key
//   - AOSTOCK_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"AOSTOCK_SERVER_URL", &c.Server.APIURL},
		{"AOSTOCK_ASSISTANT_ID", &c.Server.AssistantID},
		{"AOSTOCK_API_KEY", &c.Server.APIKey},
		{"AOSTOCK_DATA_URL", &c.Data.APIURL},
		{"AOSTOCK_DATA_KEY", &c.Data.APIKey},
		{"AOSTOCK_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "server.api_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("cannot set section %s", key)
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i], "."))
		}
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return v, nil
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.ToLower(strVal))
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if isNumeric(val.Kind()) && isNumeric(field.Kind()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"server.api_url",
		"server.assistant_id",
		"server.api_key",
		"data.api_url",
		"data.api_key",
		"models.intent_recognition.model",
		"models.intent_recognition.api_key",
		"models.intent_recognition.api_base",
		"models.analysis.model",
		"models.analysis.api_key",
		"models.analysis.api_base",
		"mentions.directory_file",
		"ui.theme",
		"ui.render_markdown",
		"ui.popup_max_visible",
		"log.level",
		"log.file",
		"log.max_size_mb",
		"log.max_backups",
	}
}

// IsSecretKey reports whether a dot-notation key holds a credential.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key")
}

// Clone creates a copy of the configuration. Config holds no reference
// types, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as JSON with credentials redacted.
func (c *Config) String() string {
	safe := c.Clone()
	for _, key := range GetAllKeys() {
		if !IsSecretKey(key) {
			continue
		}
		if v, err := safe.Get(key); err == nil && v != "" {
			_ = safe.Set(key, "[REDACTED]")
		}
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}

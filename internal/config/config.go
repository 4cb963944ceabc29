// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/reasonchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete reasonchat configuration.
type Config struct {
	// Ollama endpoint and model
	API APIConfig `toml:"api" json:"api" yaml:"api"`

	// Terminal UI appearance
	GUI GUIConfig `toml:"gui" json:"gui" yaml:"gui"`

	// Prompt framing
	Prompt PromptConfig `toml:"prompt" json:"prompt" yaml:"prompt"`

	// Sampling options sent with each request
	Generate GenerateConfig `toml:"generate" json:"generate" yaml:"generate"`

	// Stream parsing
	Stream StreamConfig `toml:"stream" json:"stream" yaml:"stream"`

	// Session archive
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Log file
	Log LogConfig `toml:"log" json:"log" yaml:"log"`
}

// APIConfig describes the Ollama server.
type APIConfig struct {
	// OllamaURL is the full generate endpoint.
	OllamaURL string `toml:"ollama_url" json:"ollama_url" yaml:"ollama_url"`
	Model     string `toml:"model" json:"model" yaml:"model"`
	// Timeout in seconds for connecting and between streamed lines.
	Timeout int `toml:"timeout" json:"timeout" yaml:"timeout"`
}

// GUIConfig holds appearance settings.
type GUIConfig struct {
	Theme string `toml:"theme" json:"theme" yaml:"theme"`
	// FontSize is kept in [MinFontSize, MaxFontSize]. A terminal cannot
	// change its font, so the TUI maps it to the section panel height.
	FontSize int `toml:"font_size" json:"font_size" yaml:"font_size"`
}

// PromptConfig holds the persona and turn framing.
type PromptConfig struct {
	System     string `toml:"system" json:"system" yaml:"system"`
	TurnSuffix string `toml:"turn_suffix" json:"turn_suffix" yaml:"turn_suffix"`
}

// GenerateConfig holds model options sent with every request. Zero values
// leave the model's own defaults in place.
type GenerateConfig struct {
	Temperature float64  `toml:"temperature,omitempty" json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopK        int      `toml:"top_k,omitempty" json:"top_k,omitempty" yaml:"top_k,omitempty"`
	TopP        float64  `toml:"top_p,omitempty" json:"top_p,omitempty" yaml:"top_p,omitempty"`
	NumCtx      int      `toml:"num_ctx,omitempty" json:"num_ctx,omitempty" yaml:"num_ctx,omitempty"`
	NumPredict  int      `toml:"num_predict,omitempty" json:"num_predict,omitempty" yaml:"num_predict,omitempty"`
	Seed        int      `toml:"seed,omitempty" json:"seed,omitempty" yaml:"seed,omitempty"`
	Stop        []string `toml:"stop,omitempty" json:"stop,omitempty" yaml:"stop,omitempty"`
}

// IsZero reports whether no option is set.
func (g GenerateConfig) IsZero() bool {
	return g.Temperature == 0 && g.TopK == 0 && g.TopP == 0 && g.NumCtx == 0 &&
		g.NumPredict == 0 && g.Seed == 0 && len(g.Stop) == 0
}

// StreamConfig selects how tags and code fences split across chunks are
// handled ("per_chunk" or "buffered").
type StreamConfig struct {
	BoundaryPolicy string `toml:"boundary_policy" json:"boundary_policy" yaml:"boundary_policy"`
}

// StorageConfig locates the session archive. An empty Path disables it.
type StorageConfig struct {
	Path     string `toml:"path" json:"path" yaml:"path"`
	Disabled bool   `toml:"disabled" json:"disabled" yaml:"disabled"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level" yaml:"level"`
	Path  string `toml:"path" json:"path" yaml:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultOllamaURL  = "http://localhost:11434/api/generate"
	DefaultModel      = "gemma2:2b"
	DefaultTimeout    = 60
	DefaultFontSize   = 10
	MinFontSize       = 8
	MaxFontSize       = 20
	ThemeDark         = "dark"
	ThemeLight        = "light"
	DefaultTurnSuffix = "\nAssistant:"
	PolicyPerChunk    = "per_chunk"
	PolicyBuffered    = "buffered"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			OllamaURL: DefaultOllamaURL,
			Model:     DefaultModel,
			Timeout:   DefaultTimeout,
		},
		GUI: GUIConfig{
			Theme:    ThemeDark,
			FontSize: DefaultFontSize,
		},
		Prompt: PromptConfig{
			System:     DefaultSystemPrompt,
			TurnSuffix: DefaultTurnSuffix,
		},
		Stream: StreamConfig{
			BoundaryPolicy: PolicyPerChunk,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// TimeoutDuration returns API.Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the reasonchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".reasonchat"), nil
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return configPath("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return configPath("config.json") }

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) { return configPath("config.yaml") }

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the first config file found in ~/.reasonchat (config.toml,
// config.json, config.yaml), applies environment overrides and validates.
// With no file the defaults are used. The returned path is the file that
// was read, or the TOML path that Save would write.
func Load() (*Config, string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return nil, "", err
	}
	jsonPath, _ := ConfigPathJSON()
	yamlPath, _ := ConfigPathYAML()

	for _, path := range []string{tomlPath, jsonPath, yamlPath} {
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err := LoadFromPath(path)
			return cfg, path, err
		}
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, tomlPath, err
	}
	return cfg, tomlPath, nil
}

// LoadFromPath loads configuration from a specific file. The format is
// chosen by extension; anything other than .json, .yaml or .yml is TOML.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err := Decode(cfg, path, data); err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data into cfg according to the extension of path.
func Decode(cfg *Config, path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to decode YAML config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("failed to decode TOML config: %w", err)
		}
	}
	return nil
}

func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

const tomlHeader = `# reasonchat configuration file
# Written by reasonchat when the theme or font size changes.

`

// Save writes the configuration to path atomically. The format follows
// the extension, like LoadFromPath.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := Encode(cfg, path)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Encode renders cfg in the format implied by path.
func Encode(cfg *Config, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return data, nil
	default:
		var buf bytes.Buffer
		buf.WriteString(tomlHeader)
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		return buf.Bytes(), nil
	}
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

// Validate checks the configuration and returns ValidateErrors when
// anything is off.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.OllamaURL); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ValidationError{
			Field:   "api.ollama_url",
			Message: fmt.Sprintf("must be an http(s) URL, got %q", c.API.OllamaURL),
		})
	}
	if strings.TrimSpace(c.API.Model) == "" {
		errs = append(errs, ValidationError{Field: "api.model", Message: "must not be empty"})
	}
	if c.API.Timeout <= 0 || c.API.Timeout > 3600 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout",
			Message: fmt.Sprintf("must be between 1 and 3600 seconds, got %d", c.API.Timeout),
		})
	}
	if c.GUI.Theme != ThemeDark && c.GUI.Theme != ThemeLight {
		errs = append(errs, ValidationError{
			Field:   "gui.theme",
			Message: fmt.Sprintf("must be %q or %q, got %q", ThemeDark, ThemeLight, c.GUI.Theme),
		})
	}
	if c.GUI.FontSize < MinFontSize || c.GUI.FontSize > MaxFontSize {
		errs = append(errs, ValidationError{
			Field:   "gui.font_size",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinFontSize, MaxFontSize, c.GUI.FontSize),
		})
	}
	if c.Generate.Temperature < 0 {
		errs = append(errs, ValidationError{
			Field:   "generate.temperature",
			Message: fmt.Sprintf("must not be negative, got %g", c.Generate.Temperature),
		})
	}
	if c.Generate.TopP < 0 || c.Generate.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "generate.top_p",
			Message: fmt.Sprintf("must be between 0 and 1, got %g", c.Generate.TopP),
		})
	}
	if c.Generate.TopK < 0 {
		errs = append(errs, ValidationError{Field: "generate.top_k", Message: "must not be negative"})
	}
	if c.Generate.NumCtx < 0 {
		errs = append(errs, ValidationError{Field: "generate.num_ctx", Message: "must not be negative"})
	}
	if c.Stream.BoundaryPolicy != PolicyPerChunk && c.Stream.BoundaryPolicy != PolicyBuffered {
		errs = append(errs, ValidationError{
			Field:   "stream.boundary_policy",
			Message: fmt.Sprintf("must be %q or %q, got %q", PolicyPerChunk, PolicyBuffered, c.Stream.BoundaryPolicy),
		})
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("must be debug, info, warn or error, got %q", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty values and clamps the font size.
func (c *Config) SetDefaults() {
	d := Default()
	if c.API.OllamaURL == "" {
		c.API.OllamaURL = d.API.OllamaURL
	}
	if c.API.Model == "" {
		c.API.Model = d.API.Model
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.GUI.Theme == "" {
		c.GUI.Theme = d.GUI.Theme
	}
	c.GUI.Theme = strings.ToLower(c.GUI.Theme)
	if c.GUI.FontSize == 0 {
		c.GUI.FontSize = d.GUI.FontSize
	}
	c.GUI.FontSize = ClampFontSize(c.GUI.FontSize)
	if c.Prompt.System == "" {
		c.Prompt.System = d.Prompt.System
	}
	if c.Prompt.TurnSuffix == "" {
		c.Prompt.TurnSuffix = d.Prompt.TurnSuffix
	}
	if c.Stream.BoundaryPolicy == "" {
		c.Stream.BoundaryPolicy = d.Stream.BoundaryPolicy
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// ClampFontSize keeps size within [MinFontSize, MaxFontSize].
func ClampFontSize(size int) int {
	return max(MinFontSize, min(size, MaxFontSize))
}

// ToggleTheme switches between the dark and light themes.
func (c *Config) ToggleTheme() string {
	if c.GUI.Theme == ThemeLight {
		c.GUI.Theme = ThemeDark
	} else {
		c.GUI.Theme = ThemeLight
	}
	return c.GUI.Theme
}

// AdjustFontSize changes the font size by delta within the allowed range.
func (c *Config) AdjustFontSize(delta int) int {
	c.GUI.FontSize = ClampFontSize(c.GUI.FontSize + delta)
	return c.GUI.FontSize
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - REASONCHAT_OLLAMA_URL: overrides api.ollama_url
//   - REASONCHAT_MODEL: overrides api.model
//   - REASONCHAT_THEME: overrides gui.theme
//   - REASONCHAT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("REASONCHAT_OLLAMA_URL"); u != "" {
		c.API.OllamaURL = u
	}
	if model := os.Getenv("REASONCHAT_MODEL"); model != "" {
		c.API.Model = model
	}
	if theme := os.Getenv("REASONCHAT_THEME"); theme != "" {
		c.GUI.Theme = theme
	}
	if level := os.Getenv("REASONCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "gui.theme").
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
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
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
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid number value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(strVal, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
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
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys returns all configuration keys in dot notation, sorted.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		prefix := strings.Split(section.Tag.Get("toml"), ",")[0]
		for j := 0; j < section.Type.NumField(); j++ {
			name := strings.Split(section.Type.Field(j).Tag.Get("toml"), ",")[0]
			keys = append(keys, prefix+"."+name)
		}
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Generate.Stop = slices.Clone(c.Generate.Stop)
	return &clone
}

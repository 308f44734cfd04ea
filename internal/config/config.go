// Package config provides configuration types and defaults for sheen.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/sheen/internal/log"
)

// Config holds all configuration options for sheen.
type Config struct {
	Theme     ThemeConfig     `mapstructure:"theme"`
	Languages LanguagesConfig `mapstructure:"languages"`
	Render    RenderConfig    `mapstructure:"render"`
	Parse     ParseConfig     `mapstructure:"parse"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       LogConfig       `mapstructure:"log"`
}

// ThemeConfig holds highlight theme customization options.
type ThemeConfig struct {
	// Preset loads a built-in palette as the base (optional).
	// Valid values: "default", "catppuccin-latte", "dracula", "nord"
	Preset string `mapstructure:"preset"`

	// Colors allows overriding individual highlight scopes.
	// Supports both nested YAML structure and dot notation.
	// Example YAML:
	//   colors:
	//     constant:
	//       numeric: "#FF0000"
	// Or quoted dot notation:
	//   colors:
	//     "constant.numeric": "#FF0000"
	Colors map[string]any `mapstructure:"colors"`
}

// FlattenedColors returns the Colors map flattened to dot-notation keys.
// This handles both nested YAML structures and already-flat keys.
func (t ThemeConfig) FlattenedColors() map[string]string {
	result := make(map[string]string)
	flattenColors("", t.Colors, result)
	return result
}

// flattenColors recursively flattens a nested map into dot-notation keys.
func flattenColors(prefix string, m map[string]any, result map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			result[key] = val
		case map[string]any:
			flattenColors(key, val, result)
		case map[any]any:
			// YAML sometimes produces map[any]any instead of map[string]any
			converted := make(map[string]any)
			for mk, mv := range val {
				if strKey, ok := mk.(string); ok {
					converted[strKey] = mv
				}
			}
			flattenColors(key, converted, result)
		}
	}
}

// LanguagesConfig holds grammar registry overrides.
type LanguagesConfig struct {
	// QueryDir points at a directory laid out as <language>/<file>.scm.
	// Files found there replace the embedded queries per file; languages
	// or files missing from the directory fall back to the built-ins.
	QueryDir string `mapstructure:"query_dir"`

	// ExtraExtensions maps additional file extensions to language names.
	// Keys are extensions without the leading dot.
	// Example: {"gohtml": "html"}
	ExtraExtensions map[string]string `mapstructure:"extra_extensions"`
}

// RenderConfig holds terminal output configuration options.
type RenderConfig struct {
	// LineNumbers prefixes each rendered line with a number gutter.
	LineNumbers bool `mapstructure:"line_numbers"`

	// TabWidth is the number of spaces a tab expands to. Zero leaves
	// tabs untouched.
	TabWidth int `mapstructure:"tab_width"`
}

// ParseConfig holds parser tuning options.
type ParseConfig struct {
	// TimeoutMS bounds a single reparse in milliseconds. A parse that
	// exceeds the budget is abandoned and the previous tree kept.
	// Zero uses the engine default.
	TimeoutMS int `mapstructure:"timeout_ms"`
}

// Timeout returns the parse budget as a duration.
func (p ParseConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// WatchConfig holds file watching configuration options.
type WatchConfig struct {
	// DebounceMS is the quiet window in milliseconds before a burst of
	// file events triggers a reparse.
	DebounceMS int `mapstructure:"debounce_ms"`
}

// Debounce returns the debounce window as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "stdout"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/sheen/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// 1.0 = all traces, 0.1 = 10% of traces
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// LogConfig holds debug logging configuration options.
type LogConfig struct {
	// File receives structured log lines when set. Empty disables
	// file logging unless --debug supplies a path.
	File string `mapstructure:"file"`

	// Level is the minimum severity written.
	// Valid values: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/sheen/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sheen", "traces", "traces.jsonl")
}

// ValidateLanguages checks language override configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateLanguages(langs LanguagesConfig) error {
	for ext, name := range langs.ExtraExtensions {
		if ext == "" {
			return fmt.Errorf("languages.extra_extensions: extension must not be empty")
		}
		if name == "" {
			return fmt.Errorf("languages.extra_extensions.%s: language name must not be empty", ext)
		}
	}
	return nil
}

// ValidateRender checks render configuration for errors.
func ValidateRender(render RenderConfig) error {
	if render.TabWidth < 0 || render.TabWidth > 16 {
		return fmt.Errorf("render.tab_width must be between 0 and 16, got %d", render.TabWidth)
	}
	return nil
}

// ValidateParse checks parser configuration for errors.
func ValidateParse(parse ParseConfig) error {
	if parse.TimeoutMS < 0 {
		return fmt.Errorf("parse.timeout_ms must not be negative, got %d", parse.TimeoutMS)
	}
	return nil
}

// ValidateWatch checks watch configuration for errors.
func ValidateWatch(watch WatchConfig) error {
	if watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", watch.DebounceMS)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	// Validate SampleRate is in range [0.0, 1.0]
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	// Validate Exporter is a valid option
	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		// FilePath is required when Exporter is "file"
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}

		// OTLPEndpoint is required when Exporter is "otlp"
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// ValidateLog checks logging configuration for errors.
func ValidateLog(logCfg LogConfig) error {
	if logCfg.Level != "" {
		switch logCfg.Level {
		case "debug", "info", "warn", "error":
			// Valid
		default:
			return fmt.Errorf("log.level must be \"debug\", \"info\", \"warn\", or \"error\", got %q", logCfg.Level)
		}
	}
	return nil
}

// Validate checks the whole configuration for errors.
func Validate(cfg Config) error {
	if err := ValidateLanguages(cfg.Languages); err != nil {
		return err
	}
	if err := ValidateRender(cfg.Render); err != nil {
		return err
	}
	if err := ValidateParse(cfg.Parse); err != nil {
		return err
	}
	if err := ValidateWatch(cfg.Watch); err != nil {
		return err
	}
	if err := ValidateTracing(cfg.Tracing); err != nil {
		return err
	}
	return ValidateLog(cfg.Log)
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Theme: ThemeConfig{
			// Empty preset loads the default palette
			Preset: "",
		},
		Render: RenderConfig{
			LineNumbers: false,
			TabWidth:    4,
		},
		Parse: ParseConfig{
			TimeoutMS: 500,
		},
		Watch: WatchConfig{
			DebounceMS: 100,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "stdout",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Sheen Configuration

# Theme configuration
# Use a preset palette or customize individual highlight scopes
theme:
  # Use a preset (run 'sheen themes' to see available presets):
  # preset: dracula
  #
  # Available presets:
  #   default           - Catppuccin Mocha, warm dark palette
  #   catppuccin-latte  - Warm, cozy light theme
  #   dracula           - Dark theme with vibrant colors
  #   nord              - Arctic, north-bluish palette
  #
  # Override specific scopes (works with or without preset):
  # colors:
  #   keyword: "#CBA6F7"
  #   string: "#A6E3A1"
  #   constant.numeric: "#FAB387"

# Language detection and query overrides
# languages:
#   # Directory of <language>/highlights.scm files replacing the built-in
#   # queries per file
#   query_dir: ~/.config/sheen/queries
#
#   # Map extra file extensions to languages (run 'sheen languages' to
#   # see what is built in)
#   extra_extensions:
#     gohtml: html
#     es6: javascript

# Terminal output settings
render:
  line_numbers: false  # Prefix each line with a number gutter
  tab_width: 4         # Spaces per tab (0 leaves tabs untouched)

# Parser tuning
# parse:
#   timeout_ms: 500  # Budget per reparse before it is abandoned (0 = default)

# Watch mode settings
# watch:
#   debounce_ms: 100  # Quiet window before a file change triggers a reparse

# Distributed tracing configuration
# Enables per-update visibility into parse and highlight passes
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: stdout               # Export backend: none, file, stdout, otlp (default: stdout)
#   file_path: ~/.config/sheen/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces

# Debug logging
# log:
#   file: ~/.config/sheen/sheen.log  # Structured log destination
#   level: info                      # debug, info, warn, or error
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	// Create parent directory if needed
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write the template
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}

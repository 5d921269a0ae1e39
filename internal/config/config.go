// Package config provides unified configuration loading for vcdq.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Accepted values for the enumerated settings.
const (
	ResolutionStrict   = "strict"
	ResolutionTolerant = "tolerant"

	TrailingKeep = "keep"
	TrailingDrop = "drop-trailing"

	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// VCDQConfig contains all vcdq configuration settings.
type VCDQConfig struct {
	// Engine controls signal resolution and sampling.
	Engine EngineConfig `json:"engine" yaml:"engine"`

	// Output controls how signal_values results are shaped.
	Output OutputConfig `json:"output" yaml:"output"`

	// Trace restricts which trace files may be opened.
	Trace TraceConfig `json:"trace" yaml:"trace"`

	// Server configures the MCP server.
	Server ServerConfig `json:"server" yaml:"server"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// EngineConfig configures the waveform query engine.
type EngineConfig struct {
	// Resolution is "strict" (an unknown signal fails the query) or
	// "tolerant" (unknown signals are reported as not found).
	Resolution string `json:"resolution" yaml:"resolution"`

	// TrailingMarker is "keep" (every time marker is a sampling instant) or
	// "drop-trailing" (the final marker is treated as end of capture).
	TrailingMarker string `json:"trailing_marker" yaml:"trailing_marker"`
}

// OutputConfig configures result rendering.
type OutputConfig struct {
	// Format is "markdown" (row table) or "json" (name -> values mapping).
	Format string `json:"format" yaml:"format"`
}

// TraceConfig configures trace file access.
type TraceConfig struct {
	// AllowedDirs limits trace paths to these directories. Empty allows any path.
	AllowedDirs []string `json:"allowed_dirs,omitempty" yaml:"allowed_dirs,omitempty"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	// RateLimitPerMinute caps signal_values calls per minute; list and search
	// get twice this. Zero disables rate limiting.
	RateLimitPerMinute float64 `json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	// RateLimitBurst is the burst allowance for signal_values.
	RateLimitBurst int `json:"rate_limit_burst" yaml:"rate_limit_burst"`

	// Audit enables the JSONL audit log of tool calls.
	Audit bool `json:"audit" yaml:"audit"`
}

// LoggingConfig configures vcdq's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to decisions.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a VCDQConfig with sensible defaults.
func Default() *VCDQConfig {
	return &VCDQConfig{
		Engine: EngineConfig{
			Resolution:     ResolutionStrict,
			TrailingMarker: TrailingKeep,
		},
		Output: OutputConfig{
			Format: FormatMarkdown,
		},
		Server: ServerConfig{
			RateLimitPerMinute: 60,
			RateLimitBurst:     10,
			Audit:              true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Dir returns the vcdq state directory: $VCDQ_HOME, or ~/.vcdq.
func Dir() (string, error) {
	if v := os.Getenv("VCDQ_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".vcdq"), nil
}

// Path returns the config file location inside Dir.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> <Dir>/config.yaml -> environment variables
func Load() (*VCDQConfig, error) {
	cfg := Default()

	if path, err := Path(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			fileCfg, loadErr := LoadFromFile(path)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			cfg = fileCfg
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields absent
// from the file keep their defaults.
func LoadFromFile(path string) (*VCDQConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating the parent directory.
func Save(cfg *VCDQConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *VCDQConfig) Validate() error {
	if !oneOf(c.Engine.Resolution, ResolutionStrict, ResolutionTolerant) {
		return fmt.Errorf("invalid resolution: %q (valid: strict, tolerant)", c.Engine.Resolution)
	}
	if !oneOf(c.Engine.TrailingMarker, TrailingKeep, TrailingDrop) {
		return fmt.Errorf("invalid trailing_marker: %q (valid: keep, drop-trailing)", c.Engine.TrailingMarker)
	}
	if !oneOf(c.Output.Format, FormatMarkdown, FormatJSON) {
		return fmt.Errorf("invalid output format: %q (valid: markdown, json)", c.Output.Format)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must be non-negative, got %v", c.Server.RateLimitPerMinute)
	}
	if c.Server.RateLimitPerMinute > 0 && c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("rate_limit_burst must be at least 1 when rate limiting is enabled, got %d", c.Server.RateLimitBurst)
	}
	if c.Logging.Level != "" && !oneOf(c.Logging.Level, "info", "debug", "trace") {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *VCDQConfig) {
	if v := os.Getenv("VCDQ_RESOLUTION"); v != "" {
		cfg.Engine.Resolution = v
	}
	if v := os.Getenv("VCDQ_TRAILING_MARKER"); v != "" {
		cfg.Engine.TrailingMarker = v
	}
	if v := os.Getenv("VCDQ_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("VCDQ_ALLOWED_DIRS"); v != "" {
		var dirs []string
		for _, d := range filepath.SplitList(v) {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		cfg.Trace.AllowedDirs = dirs
	}
	if v := os.Getenv("VCDQ_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimitPerMinute = f
		}
	}
	if v := os.Getenv("VCDQ_AUDIT"); v != "" {
		cfg.Server.Audit = v == "true" || v == "1"
	}
	if v := os.Getenv("VCDQ_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Package config loads the per-repository codewatch configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the codewatch configuration file.
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the codewatch configuration directory.
const ConfigDirName = ".codewatch"

// Config holds all codewatch configuration.
type Config struct {
	Scan    ScanConfig    `yaml:"scan"`
	History HistoryConfig `yaml:"history"`
}

// ScanConfig holds configuration for change scanning.
type ScanConfig struct {
	// Exclude lists glob patterns (doublestar syntax) for paths that the
	// cross-file search skips.
	Exclude []string `yaml:"exclude"`
	// ContextLines is the anchor context captured around watched ranges.
	ContextLines int `yaml:"context_lines"`
	// FailOnTrigger makes a single-repository scan exit with code 2 when
	// triggers are found, as --fail-on-trigger does. 'cw scan --all' reads
	// only the flag.
	FailOnTrigger bool `yaml:"fail_on_trigger"`
}

// HistoryConfig holds configuration for scan history retention.
type HistoryConfig struct {
	// Keep is the number of scans retained per project; 0 disables
	// pruning.
	Keep int `yaml:"keep"`
}

// ErrInvalidConfig is returned when config validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Exclude: []string{
				"**/node_modules/**",
				"**/.git/**",
				"**/build/**",
				"**/dist/**",
			},
			ContextLines: 2,
		},
		History: HistoryConfig{
			Keep: 50,
		},
	}
}

// Load reads config from .codewatch/config.yaml under repoRoot, falling
// back to defaults when no file exists.
func Load(repoRoot string) (*Config, error) {
	return LoadFromPath(filepath.Join(repoRoot, ConfigDirName, ConfigFileName))
}

// LoadFromPath reads config from a specific path. The loaded config is
// merged over defaults and validated.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to .codewatch/config.yaml under repoRoot.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ConfigDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0o644)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Scan.ContextLines < 0 {
		return fmt.Errorf("%w: scan.context_lines must be >= 0", ErrInvalidConfig)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("%w: history.keep must be >= 0", ErrInvalidConfig)
	}
	for _, pattern := range c.Scan.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("%w: bad exclude pattern %q", ErrInvalidConfig, pattern)
		}
	}
	return nil
}

// Excluded reports whether a repo-relative path matches any exclude
// pattern.
func (c *Config) Excluded(path string) bool {
	for _, pattern := range c.Scan.Exclude {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// Package config loads pgingest.yaml, the optional per-directory defaults file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vvka-141/pgingest/pkg/pgingest"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// RuleConfig is a normalization rule as written in pgingest.yaml.
type RuleConfig struct {
	Field  string `yaml:"field"`
	Kind   string `yaml:"kind"`
	Layout string `yaml:"layout,omitempty"`
}

// ProjectConfig holds defaults that command-line flags override.
type ProjectConfig struct {
	Connection   string       `yaml:"connection"`
	BatchSize    int          `yaml:"batch_size,omitempty"`
	DownloadsDir string       `yaml:"downloads_dir,omitempty"`
	Overwrite    string       `yaml:"overwrite,omitempty"`
	IndexColumn  string       `yaml:"index_column,omitempty"`
	Delimiter    string       `yaml:"delimiter,omitempty"`
	RawHeaders   bool         `yaml:"raw_headers,omitempty"`
	Timeout      string       `yaml:"timeout,omitempty"`
	Rules        []RuleConfig `yaml:"rules,omitempty"`
}

const ConfigFileName = "pgingest.yaml"

// Load reads ConfigFileName from dir. Unknown keys are rejected.
func Load(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w: %w", configPath, err, pgingest.ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &cfg, nil
}

func (c *ProjectConfig) validate() error {
	var errs []error
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batch_size cannot be negative: %w", pgingest.ErrInvalidConfig))
	}
	if _, err := pgingest.ParseOverwritePolicy(c.Overwrite); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DelimiterRune(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.NormalizationRules(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TimeoutDuration parses Timeout; zero means no timeout.
func (c *ProjectConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("timeout %q is not a valid duration: %w", c.Timeout, pgingest.ErrInvalidConfig)
	}
	return d, nil
}

// DelimiterRune returns the configured delimiter, or zero when unset.
func (c *ProjectConfig) DelimiterRune() (rune, error) {
	if c.Delimiter == "" {
		return 0, nil
	}
	return ParseDelimiter(c.Delimiter)
}

// ParseDelimiter accepts a single character or one of the names "tab", "comma",
// "semicolon" and "pipe".
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character: %w", s, pgingest.ErrInvalidConfig)
	}
	return r[0], nil
}

// NormalizationRules converts Rules to their typed form.
func (c *ProjectConfig) NormalizationRules() ([]pgingest.NormalizationRule, error) {
	rules := make([]pgingest.NormalizationRule, 0, len(c.Rules))
	for i, r := range c.Rules {
		kind, err := pgingest.ParseFieldType(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w: %w", i, err, pgingest.ErrInvalidConfig)
		}
		if r.Field == "" {
			return nil, fmt.Errorf("rules[%d]: field is required: %w", i, pgingest.ErrInvalidConfig)
		}
		rules = append(rules, pgingest.NormalizationRule{Field: r.Field, Kind: kind, Layout: r.Layout})
	}
	return rules, nil
}

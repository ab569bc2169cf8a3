// Package config provides configuration loading and management for satfilter.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"satfilter/pkg/format"
	"satfilter/pkg/sat"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Filter parameters
	Filter struct {
		// Mode is either "inclusive" or "exclusive"
		Mode string `yaml:"mode"`

		// Origin is either "top-left" or "bottom-left"
		Origin string `yaml:"origin"`

		// Normalize divides every table entry by its slice total
		Normalize bool `yaml:"normalize"`

		// OutputFormat names the table format; empty picks a float format
		// with the input's channel count
		OutputFormat string `yaml:"outputFormat"`
	} `yaml:"filter"`

	// Output parameters
	Output struct {
		// DumpFile is where the compressed table dump is written
		DumpFile string `yaml:"dumpFile"`

		// PreviewDir receives one grayscale image per table slice
		PreviewDir string `yaml:"previewDir"`

		// BoxRadius enables a box filtered preview when positive
		BoxRadius int `yaml:"boxRadius"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Filter.Mode = sat.Inclusive.String()
	cfg.Filter.Origin = sat.OriginTopLeft.String()
	cfg.Filter.Normalize = false

	cfg.Output.DumpFile = "table.satd"
	cfg.Output.PreviewDir = ""
	cfg.Output.BoxRadius = 0
	cfg.Output.Verbose = false

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// NewFilter builds the filter described by the configuration
func (c *Config) NewFilter() (*sat.Filter, error) {
	f := &sat.Filter{}

	switch c.Filter.Mode {
	case "", "inclusive":
		f.Mode = sat.Inclusive
	case "exclusive":
		f.Mode = sat.Exclusive
	default:
		return nil, fmt.Errorf("invalid mode %q (must be inclusive or exclusive)", c.Filter.Mode)
	}

	switch c.Filter.Origin {
	case "", "top-left":
		f.Origin = sat.OriginTopLeft
	case "bottom-left":
		f.Origin = sat.OriginBottomLeft
	default:
		return nil, fmt.Errorf("invalid origin %q (must be top-left or bottom-left)", c.Filter.Origin)
	}

	return f, nil
}

// OutputFormatFor returns the configured table format, or a float format
// wide enough for input when none is configured
func (c *Config) OutputFormatFor(input format.Format) (format.Format, error) {
	if c.Filter.OutputFormat != "" {
		f, ok := format.Parse(c.Filter.OutputFormat)
		if !ok {
			return format.FormatUndefined, fmt.Errorf("unknown output format %q", c.Filter.OutputFormat)
		}
		return f, nil
	}

	switch input.Channels() {
	case 1:
		return format.FormatR64Sfloat, nil
	case 2:
		return format.FormatRG32Sfloat, nil
	default:
		if input.Class() > format.Class128Bit {
			return format.FormatRGBA64Sfloat, nil
		}
		return format.FormatRGBA32Sfloat, nil
	}
}

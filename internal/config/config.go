// Package config loads tool configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in the source field.
const (
	BackendSysfs    = "sysfs"
	BackendPortIO   = "portio"
	BackendPreset   = "preset"
	BackendFixture  = "fixture"
	BackendSnapshot = "snapshot"
)

// Config represents the pcitree configuration
type Config struct {
	LogLevel string `yaml:"log_level"`
	Backend  string `yaml:"backend"`
	Segment  uint16 `yaml:"segment"`
	Preset   string `yaml:"preset"`
	Fixture  string `yaml:"fixture"`
	Snapshot string `yaml:"snapshot"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Backend:  BackendSysfs,
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSysfs:
	case BackendPortIO:
		if c.Segment != 0 {
			return fmt.Errorf("port io cannot address segment %d", c.Segment)
		}
	case BackendPreset:
		if c.Preset == "" {
			return fmt.Errorf("preset backend needs a preset name")
		}
	case BackendFixture:
		if c.Fixture == "" {
			return fmt.Errorf("fixture backend needs a fixture file")
		}
	case BackendSnapshot:
		if c.Snapshot == "" {
			return fmt.Errorf("snapshot backend needs a snapshot file")
		}
	case "":
		return fmt.Errorf("backend is not set")
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

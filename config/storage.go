package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonrf/host/logging"
)

// SaveToFile writes c as indented JSON, creating parent directories
func SaveToFile(c *RadioConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// LoadFromFile reads a configuration and fills unset fields with defaults.
// An empty path returns Default.
func LoadFromFile(path string) (*RadioConfig, error) {
	if path == "" {
		logging.LogInfo(logging.ComponentConfig, "no configuration file, using defaults")
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var c RadioConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.LogDebug(logging.ComponentConfig, "loaded configuration",
		"path", path, "backend", c.Backend, "pipes", len(c.Pipes))
	return &c, nil
}

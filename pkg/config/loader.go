package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading and saving
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// LoadConfig loads configuration from file or returns default config
func (l *Loader) LoadConfig() (*Config, error) {
	config := DefaultConfig()

	// If no specific config path provided, search for config files
	if l.configPath == "" {
		configPath, err := l.findConfigFile()
		if err != nil {
			return withOverrides(config)
		}
		l.configPath = configPath
	}

	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		return withOverrides(config)
	}

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", l.configPath, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", l.configPath, err)
	}

	config.ApplyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", l.configPath, err)
	}

	return config, nil
}

func withOverrides(config *Config) (*Config, error) {
	config.ApplyEnvironmentOverrides()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return config, nil
}

// SaveConfig saves the configuration to file
func (l *Loader) SaveConfig(config *Config) error {
	if l.configPath == "" {
		l.configPath = DefaultConfigPath()
	}

	configDir := filepath.Dir(l.configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(l.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", l.configPath, err)
	}

	return nil
}

// GetConfigPath returns the current config file path, empty when running on defaults
func (l *Loader) GetConfigPath() string {
	return l.configPath
}

// findConfigFile searches for a configuration file in standard locations
func (l *Loader) findConfigFile() (string, error) {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found")
}

// CreateDefaultConfig writes the default configuration to path. An existing
// file is left alone unless force is set.
func CreateDefaultConfig(path string, force bool) (string, error) {
	loader := NewLoader(path)
	if path == "" {
		loader.configPath = DefaultConfigPath()
	}

	if !force {
		if _, err := os.Stat(loader.configPath); err == nil {
			return loader.configPath, fmt.Errorf("config file %s already exists", loader.configPath)
		}
	}

	return loader.configPath, loader.SaveConfig(DefaultConfig())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// Test constants
const (
	testVersion = "1.0"
)

func createTempDir(t *testing.T, prefix string) string {
	tempDir, err := os.MkdirTemp("", prefix)
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(tempDir)
	})
	return tempDir
}

func createTempFile(t *testing.T, dir, filename, content string) string {
	filePath := filepath.Join(dir, filename)

	// #nosec G301 - 0755 is acceptable for test directories in temporary location
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		t.Fatalf("Failed to create directory for temp file: %v", err)
	}

	if err := os.WriteFile(filePath, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	return filePath
}

func TestLoader(t *testing.T) {
	tempDir := createTempDir(t, "config-test-")
	configPath := filepath.Join(tempDir, "config.yaml")

	loader := NewLoader(configPath)

	// Non-existent config falls back to defaults
	config, err := loader.LoadConfig()
	if err != nil {
		t.Fatalf("Expected no error loading non-existent config, got: %v", err)
	}

	if config == nil {
		t.Fatal("Expected default config, got nil")
	}

	if config.Version != testVersion {
		t.Errorf("Expected default version 1.0, got %s", config.Version)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	tempDir := createTempDir(t, "config-test-")
	configPath := filepath.Join(tempDir, "nested", "config.yaml")

	loader := NewLoader(configPath)

	originalConfig := DefaultConfig()
	originalConfig.Coordinator.AgentTimeout = 12 * time.Second
	originalConfig.Conflicts.TrustWeights["mediation_analyzer"] = 2.5
	originalConfig.Events.Priorities["custom_event"] = "high"
	originalConfig.UI.Theme = "light"

	if err := loader.SaveConfig(originalConfig); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected config file mode 0600, got %v", info.Mode().Perm())
	}

	loadedConfig, err := loader.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedConfig.Coordinator.AgentTimeout != 12*time.Second {
		t.Errorf("Expected agent timeout 12s, got %v", loadedConfig.Coordinator.AgentTimeout)
	}
	if loadedConfig.Conflicts.TrustWeights["mediation_analyzer"] != 2.5 {
		t.Errorf("Expected mediation trust weight 2.5, got %v", loadedConfig.Conflicts.TrustWeights["mediation_analyzer"])
	}
	if loadedConfig.Events.Priorities["custom_event"] != "high" {
		t.Errorf("Expected custom_event priority high, got %s", loadedConfig.Events.Priorities["custom_event"])
	}
	if loadedConfig.UI.Theme != "light" {
		t.Errorf("Expected theme light, got %s", loadedConfig.UI.Theme)
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	tempDir := createTempDir(t, "config-test-")
	configPath := createTempFile(t, tempDir, "config.yaml", `
version: "1.0"
coordinator:
  agent_timeout: 5s
conflicts:
  trust_weights:
    contract_analyzer: 3
`)

	config, err := NewLoader(configPath).LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Coordinator.AgentTimeout != 5*time.Second {
		t.Errorf("Expected agent timeout 5s, got %v", config.Coordinator.AgentTimeout)
	}
	if config.Coordinator.MaxConcurrentAgents != DefaultConfig().Coordinator.MaxConcurrentAgents {
		t.Errorf("Expected default max concurrent agents, got %d", config.Coordinator.MaxConcurrentAgents)
	}
	if config.Conflicts.TrustWeights["contract_analyzer"] != 3 {
		t.Errorf("Expected contract trust weight 3, got %v", config.Conflicts.TrustWeights["contract_analyzer"])
	}
	if config.Conflicts.TrustWeights["emotional_analyzer"] != 1.2 {
		t.Errorf("Expected default emotional trust weight to survive, got %v", config.Conflicts.TrustWeights["emotional_analyzer"])
	}
}

func TestInvalidYAMLConfig(t *testing.T) {
	tempDir := createTempDir(t, "config-test-")
	configPath := createTempFile(t, tempDir, "config.yaml", "invalid: yaml: content:\n  - missing:")

	if _, err := NewLoader(configPath).LoadConfig(); err == nil {
		t.Error("Expected error for invalid YAML config")
	}
}

func TestInvalidConfigValidation(t *testing.T) {
	tempDir := createTempDir(t, "config-test-")

	invalidConfig := map[string]interface{}{
		"version": testVersion,
		"events": map[string]interface{}{
			"priorities": map[string]interface{}{
				"progress_update": "urgent", // not a priority
			},
		},
	}

	data, err := yaml.Marshal(invalidConfig)
	if err != nil {
		t.Fatalf("Failed to marshal invalid config: %v", err)
	}

	configPath := createTempFile(t, tempDir, "config.yaml", string(data))

	if _, err := NewLoader(configPath).LoadConfig(); err == nil {
		t.Error("Expected validation error for invalid config")
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	tempDir := createTempDir(t, "config-test-")
	configPath := filepath.Join(tempDir, "config.yaml")

	written, err := CreateDefaultConfig(configPath, false)
	if err != nil {
		t.Fatalf("Failed to create default config: %v", err)
	}
	if written != configPath {
		t.Errorf("Expected config written to %s, got %s", configPath, written)
	}

	config, err := NewLoader(configPath).LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load created default config: %v", err)
	}
	if config.Version != testVersion {
		t.Errorf("Expected version 1.0, got %s", config.Version)
	}

	if _, err := CreateDefaultConfig(configPath, false); err == nil {
		t.Error("Expected error when config already exists")
	}
	if _, err := CreateDefaultConfig(configPath, true); err != nil {
		t.Errorf("Expected forced overwrite to succeed, got: %v", err)
	}
}

func TestFindConfigFile(t *testing.T) {
	tempDir := createTempDir(t, "config-test-")
	createTempFile(t, tempDir, ".repaircoord.yaml", "version: \"1.0\"\nui:\n  theme: light\n")

	chdirForTest(t, tempDir)

	loader := NewLoader("")
	config, err := loader.LoadConfig()
	if err != nil {
		t.Fatalf("Failed to find and load config: %v", err)
	}

	if config.UI.Theme != "light" {
		t.Errorf("Expected theme from discovered config, got %s", config.UI.Theme)
	}
	if loader.GetConfigPath() != ".repaircoord.yaml" {
		t.Errorf("Expected discovered path .repaircoord.yaml, got %s", loader.GetConfigPath())
	}
}

func TestLoaderGetConfigPath(t *testing.T) {
	configPath := "/test/path/config.yaml"
	loader := NewLoader(configPath)

	if loader.GetConfigPath() != configPath {
		t.Errorf("Expected config path %s, got %s", configPath, loader.GetConfigPath())
	}
}

func TestEnvironmentConfigPath(t *testing.T) {
	tempDir := createTempDir(t, "config-test-")
	configPath := createTempFile(t, tempDir, "custom-config.yaml", `
version: "1.0"
llm:
  enabled: true
  command: "env-model"
`)

	t.Setenv("REPAIRCOORD_CONFIG", configPath)

	paths := GetConfigPaths()
	if len(paths) == 0 || paths[0] != configPath {
		t.Errorf("Expected first path to be %s, got %v", configPath, paths)
	}

	config, err := NewLoader("").LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config from environment path: %v", err)
	}

	if config.LLM.Command != "env-model" {
		t.Errorf("Expected llm command from env config, got %s", config.LLM.Command)
	}
}

// Package config provides configuration management and settings for repaircoord
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/coordination"
	"github.com/fumiya-kume/repaircoord/pkg/errors"
	"github.com/fumiya-kume/repaircoord/pkg/llm"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

// Log level constants
const (
	logLevelDebug = "debug"
)

// ValidationLevel represents the level of configuration validation
type ValidationLevel int

const (
	ValidationLevelBasic ValidationLevel = iota
	ValidationLevelStrict
)

// ConfigValidator checks a configuration and collects errors and warnings
type ConfigValidator struct {
	level ValidationLevel
}

// ConfigValidationResult contains validation results
type ConfigValidationResult struct {
	Errors   []error
	Warnings []string
}

// HasErrors returns true if there are validation errors
func (cvr *ConfigValidationResult) HasErrors() bool {
	return len(cvr.Errors) > 0
}

// NewConfigValidator creates a new config validator
func NewConfigValidator(level ValidationLevel) *ConfigValidator {
	return &ConfigValidator{level: level}
}

// ValidateConfig validates a configuration. Strict validation also reports
// settings that are legal but probably unintended.
func (cv *ConfigValidator) ValidateConfig(config *Config) *ConfigValidationResult {
	result := &ConfigValidationResult{
		Errors:   []error{},
		Warnings: []string{},
	}

	if config == nil {
		result.Errors = append(result.Errors, errors.ConfigurationError("config cannot be nil"))
		return result
	}

	if err := config.Validate(); err != nil {
		result.Errors = append(result.Errors, err)
	}

	if cv.level >= ValidationLevelStrict {
		cv.validateAgentReferences(config, result)
	}
	return result
}

// validateAgentReferences warns about agent names that no expected agent carries
func (cv *ConfigValidator) validateAgentReferences(config *Config, result *ConfigValidationResult) {
	known := make(map[string]bool)
	for _, name := range config.Coordinator.ExpectedAgents {
		known[name] = true
	}
	warn := func(where, name string) {
		if !known[name] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s references %s, which is not an expected agent", where, name))
		}
	}

	for _, agent := range sortedKeys(config.Conflicts.TrustWeights) {
		warn("conflicts.trust_weights", agent)
	}
	for _, category := range sortedKeys(config.Conflicts.ExpertAuthorities) {
		warn("conflicts.expert_authorities."+category, config.Conflicts.ExpertAuthorities[category])
	}
	for _, category := range sortedKeys(config.Events.Routes) {
		for _, agent := range config.Events.Routes[category] {
			warn("events.routes."+category, agent)
		}
	}
	for _, name := range config.Coordinator.DisabledAgents {
		warn("coordinator.disabled_agents", name)
	}

	for _, eventType := range sortedKeys(config.Events.Priorities) {
		p, err := agents.ParsePriority(config.Events.Priorities[eventType])
		if err == nil && p == agents.PriorityCritical && len(config.Events.ImmediateActions[eventType]) == 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("critical event %s has no immediate actions; the default action will be used", eventType))
		}
	}

	if config.LLM.Enabled && config.LLM.Command == "" {
		result.Warnings = append(result.Warnings, "llm is enabled but llm.command is empty")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Config represents the application configuration
type Config struct {
	Version string `yaml:"version"`

	Coordinator CoordinatorConfig `yaml:"coordinator"`
	Conflicts   ConflictsConfig   `yaml:"conflicts"`
	Events      EventsConfig      `yaml:"events"`

	LLM     LLMConfig     `yaml:"llm"`
	Logging LoggingConfig `yaml:"logging"`
	UI      UIConfig      `yaml:"ui"`
}

// CoordinatorConfig holds fan-out and health monitoring settings
type CoordinatorConfig struct {
	AgentTimeout             time.Duration `yaml:"agent_timeout"`
	MaxConcurrentAgents      int           `yaml:"max_concurrent_agents"`
	CommunicationLogCapacity int           `yaml:"communication_log_capacity"`
	HealthCheckInterval      time.Duration `yaml:"health_check_interval"`
	HealthCheckTimeout       time.Duration `yaml:"health_check_timeout"`
	ExpectedAgents           []string      `yaml:"expected_agents"`
	DisabledAgents           []string      `yaml:"disabled_agents,omitempty"`
}

// ConflictsConfig holds the conflict resolution tuning
type ConflictsConfig struct {
	TrustWeights      map[string]float64 `yaml:"trust_weights"`
	ExpertAuthorities map[string]string  `yaml:"expert_authorities"`
	SafetyCategories  []string           `yaml:"safety_categories"`
	CategorySeverity  map[string]string  `yaml:"category_severity,omitempty"`
}

// EventsConfig holds event classification and routing tables
type EventsConfig struct {
	Priorities       map[string]string   `yaml:"priorities"`
	Routes           map[string][]string `yaml:"routes"`
	ImmediateActions map[string][]string `yaml:"immediate_actions"`
}

// LLMConfig configures the optional model CLI used by the mediation analyzer
type LLMConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Command       string        `yaml:"command"`
	Args          []string      `yaml:"args,omitempty"`
	Model         string        `yaml:"model,omitempty"`
	MaxTokens     int           `yaml:"max_tokens"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	MaxAttempts   int           `yaml:"max_attempts"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// UIConfig holds terminal output settings
type UIConfig struct {
	Theme           string        `yaml:"theme"`
	Alerts          bool          `yaml:"alerts"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	settings := coordination.DefaultSettings()

	config := &Config{
		Version: "1.0",

		Coordinator: CoordinatorConfig{
			AgentTimeout:             settings.AgentTimeout,
			MaxConcurrentAgents:      settings.MaxConcurrentAgents,
			CommunicationLogCapacity: settings.CommunicationLogCapacity,
			HealthCheckInterval:      settings.HealthCheckInterval,
			HealthCheckTimeout:       settings.HealthCheckTimeout,
			ExpectedAgents:           namesToStrings(settings.ExpectedAgents),
		},

		Conflicts: ConflictsConfig{
			TrustWeights:      make(map[string]float64, len(settings.TrustWeights)),
			ExpertAuthorities: make(map[string]string, len(settings.ExpertAuthorities)),
			SafetyCategories:  append([]string(nil), settings.SafetyCategories...),
			CategorySeverity:  map[string]string{},
		},

		Events: EventsConfig{
			Priorities:       make(map[string]string, len(settings.EventPriorities)),
			Routes:           make(map[string][]string, len(settings.EventRoutes)),
			ImmediateActions: make(map[string][]string, len(settings.ImmediateActions)),
		},

		LLM: LLMConfig{
			Enabled:       false,
			Command:       "claude",
			MaxTokens:     512,
			Timeout:       llm.DefaultCommandTimeout,
			MaxConcurrent: llm.DefaultMaxConcurrent,
			MaxAttempts:   errors.DefaultRetryConfig().MaxAttempts,
		},

		Logging: LoggingConfig{
			Level: "info",
		},

		UI: UIConfig{
			Theme:           "dark",
			Alerts:          true,
			RefreshInterval: 2 * time.Second,
		},
	}

	for agent, w := range settings.TrustWeights {
		config.Conflicts.TrustWeights[string(agent)] = w
	}
	for category, agent := range settings.ExpertAuthorities {
		config.Conflicts.ExpertAuthorities[category] = string(agent)
	}
	for eventType, p := range settings.EventPriorities {
		config.Events.Priorities[eventType] = p.String()
	}
	for category, names := range settings.EventRoutes {
		config.Events.Routes[category] = namesToStrings(names)
	}
	for eventType, actions := range settings.ImmediateActions {
		config.Events.ImmediateActions[eventType] = append([]string(nil), actions...)
	}

	return config
}

// GetConfigPaths returns the list of configuration file paths to check
func GetConfigPaths() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Use current directory as fallback if home directory cannot be determined
		homeDir = "."
	}

	paths := []string{
		".repaircoord.yaml",
		".repaircoord.yml",
		filepath.Join(homeDir, ".repaircoord.yaml"),
		filepath.Join(homeDir, ".repaircoord.yml"),
		filepath.Join(homeDir, ".config", "repaircoord", "config.yaml"),
		filepath.Join(homeDir, ".config", "repaircoord", "config.yml"),
	}

	if envPath := os.Getenv("REPAIRCOORD_CONFIG"); envPath != "" {
		paths = append([]string{envPath}, paths...)
	}

	return paths
}

// DefaultConfigPath is where `config init` writes when no path is given
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "repaircoord", "config.yaml")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return errors.ConfigurationError(fmt.Sprintf("unsupported config version: %q", c.Version))
	}

	// Coordinator
	if c.Coordinator.AgentTimeout <= 0 {
		return errors.ConfigurationError("coordinator.agent_timeout must be positive")
	}
	if c.Coordinator.MaxConcurrentAgents < 1 {
		return errors.ConfigurationError("coordinator.max_concurrent_agents must be at least 1")
	}
	if c.Coordinator.CommunicationLogCapacity < 1 {
		return errors.ConfigurationError("coordinator.communication_log_capacity must be at least 1")
	}
	if c.Coordinator.HealthCheckInterval <= 0 {
		return errors.ConfigurationError("coordinator.health_check_interval must be positive")
	}
	if c.Coordinator.HealthCheckTimeout <= 0 {
		return errors.ConfigurationError("coordinator.health_check_timeout must be positive")
	}
	for _, name := range c.Coordinator.ExpectedAgents {
		if strings.TrimSpace(name) == "" {
			return errors.ConfigurationError("coordinator.expected_agents cannot contain empty names")
		}
	}

	// Conflicts
	for agent, w := range c.Conflicts.TrustWeights {
		if w < 0 {
			return errors.ConfigurationError(fmt.Sprintf("conflicts.trust_weights.%s cannot be negative", agent))
		}
	}
	for category, severity := range c.Conflicts.CategorySeverity {
		if _, err := agents.ParsePriority(severity); err != nil {
			return errors.ConfigurationError(fmt.Sprintf("conflicts.category_severity.%s: %v", category, err))
		}
	}

	// Events
	for eventType, priority := range c.Events.Priorities {
		if _, err := agents.ParsePriority(priority); err != nil {
			return errors.ConfigurationError(fmt.Sprintf("events.priorities.%s: %v", eventType, err))
		}
	}

	// LLM
	if c.LLM.Enabled {
		if c.LLM.Timeout <= 0 {
			return errors.ConfigurationError("llm.timeout must be positive")
		}
		if c.LLM.MaxAttempts < 1 {
			return errors.ConfigurationError("llm.max_attempts must be at least 1")
		}
	}

	// Logging
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil || c.Logging.Level == "" {
		return errors.ConfigurationError("logging.level must be one of: debug, info, warn, error")
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true}
	if !validThemes[c.UI.Theme] {
		return errors.ConfigurationError(fmt.Sprintf("invalid theme: %s", c.UI.Theme))
	}
	if c.UI.RefreshInterval < 100*time.Millisecond {
		return errors.ConfigurationError("ui.refresh_interval must be at least 100ms")
	}

	return nil
}

// ApplyEnvironmentOverrides applies environment variable overrides to the configuration
func (c *Config) ApplyEnvironmentOverrides() {
	if level := os.Getenv("REPAIRCOORD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("REPAIRCOORD_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
	if timeout := os.Getenv("REPAIRCOORD_AGENT_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.Coordinator.AgentTimeout = d
		}
	}
	if cmd := os.Getenv("REPAIRCOORD_LLM_COMMAND"); cmd != "" {
		c.LLM.Command = cmd
		c.LLM.Enabled = true
	}

	// Debug mode override
	if os.Getenv("REPAIRCOORD_DEBUG") == "true" {
		c.Logging.Level = logLevelDebug
	}
}

// ToLoggerConfig converts the logging configuration to logger.Config
func (c *Config) ToLoggerConfig() logger.Config {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logger.LevelInfo
	}

	return logger.Config{
		Level:     level,
		LogFile:   c.Logging.File,
		Timestamp: true,
		Prefix:    "repaircoord",
	}
}

// ToSettings converts the configuration into coordinator settings
func (c *Config) ToSettings() (coordination.Settings, error) {
	s := coordination.Settings{
		AgentTimeout:             c.Coordinator.AgentTimeout,
		MaxConcurrentAgents:      c.Coordinator.MaxConcurrentAgents,
		CommunicationLogCapacity: c.Coordinator.CommunicationLogCapacity,
		HealthCheckInterval:      c.Coordinator.HealthCheckInterval,
		HealthCheckTimeout:       c.Coordinator.HealthCheckTimeout,
		ExpectedAgents:           stringsToNames(c.Coordinator.ExpectedAgents),
		TrustWeights:             make(map[agents.AgentName]float64, len(c.Conflicts.TrustWeights)),
		ExpertAuthorities:        make(map[string]agents.AgentName, len(c.Conflicts.ExpertAuthorities)),
		SafetyCategories:         append([]string(nil), c.Conflicts.SafetyCategories...),
		CategorySeverity:         make(map[string]agents.Priority, len(c.Conflicts.CategorySeverity)),
		EventPriorities:          make(map[string]agents.Priority, len(c.Events.Priorities)),
		EventRoutes:              make(map[string][]agents.AgentName, len(c.Events.Routes)),
		ImmediateActions:         make(map[string][]string, len(c.Events.ImmediateActions)),
	}

	for agent, w := range c.Conflicts.TrustWeights {
		s.TrustWeights[agents.AgentName(agent)] = w
	}
	for category, agent := range c.Conflicts.ExpertAuthorities {
		s.ExpertAuthorities[category] = agents.AgentName(agent)
	}
	for category, severity := range c.Conflicts.CategorySeverity {
		p, err := agents.ParsePriority(severity)
		if err != nil {
			return coordination.Settings{}, errors.ConfigurationError(fmt.Sprintf("conflicts.category_severity.%s: %v", category, err))
		}
		s.CategorySeverity[category] = p
	}
	for eventType, priority := range c.Events.Priorities {
		p, err := agents.ParsePriority(priority)
		if err != nil {
			return coordination.Settings{}, errors.ConfigurationError(fmt.Sprintf("events.priorities.%s: %v", eventType, err))
		}
		s.EventPriorities[eventType] = p
	}
	for category, names := range c.Events.Routes {
		s.EventRoutes[category] = stringsToNames(names)
	}
	for eventType, actions := range c.Events.ImmediateActions {
		s.ImmediateActions[eventType] = append([]string(nil), actions...)
	}

	return s.Normalized(), nil
}

// DisabledAgents returns the agents the CLI should not register
func (c *Config) DisabledAgents() []agents.AgentName {
	return stringsToNames(c.Coordinator.DisabledAgents)
}

// ToCommandConfig converts the llm section into a command client configuration
func (c *Config) ToCommandConfig() llm.CommandConfig {
	return llm.CommandConfig{
		Command:       c.LLM.Command,
		Args:          append([]string(nil), c.LLM.Args...),
		Timeout:       c.LLM.Timeout,
		MaxConcurrent: c.LLM.MaxConcurrent,
	}
}

// ToRetryConfig returns the backoff used around llm calls
func (c *Config) ToRetryConfig() errors.RetryConfig {
	cfg := errors.DefaultRetryConfig()
	if c.LLM.MaxAttempts > 0 {
		cfg.MaxAttempts = c.LLM.MaxAttempts
	}
	return cfg
}

func namesToStrings(names []agents.AgentName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

func stringsToNames(values []string) []agents.AgentName {
	out := make([]agents.AgentName, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, agents.AgentName(v))
		}
	}
	return out
}

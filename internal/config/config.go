package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all steward configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Protection policy settings
	Policy PolicyConfig `yaml:"policy"`

	// Goal tracking settings
	Goal GoalConfig `yaml:"goal"`

	// Guard settings (rate limiting, circuit breaking, timeouts)
	Guard GuardConfig `yaml:"guard"`

	// Skill/command document loading
	Skills SkillsConfig `yaml:"skills"`

	// Module registry settings
	Registry RegistryConfig `yaml:"registry"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PolicyConfig configures the protection-level engine.
type PolicyConfig struct {
	// How long a confirmation grant for a stable-level path stays valid.
	ConfirmTTL string `yaml:"confirm_ttl"`

	// Level assumed for paths that match no module record.
	DefaultLevel string `yaml:"default_level"`
}

// GoalConfig configures goal tracking.
type GoalConfig struct {
	// Path of the rendered goal document, relative to the workspace.
	DocumentPath string `yaml:"document_path"`

	// Require a progress entry before a commit record is accepted.
	RequireProgressOnCommit bool `yaml:"require_progress_on_commit"`
}

// GuardConfig configures the execution guards.
type GuardConfig struct {
	// Token bucket settings
	RateCapacity float64 `yaml:"rate_capacity"` // max tokens per bucket
	RateRefill   float64 `yaml:"rate_refill"`   // tokens per second

	// Circuit breaker settings
	FailureThreshold int    `yaml:"failure_threshold"`
	SuccessThreshold int    `yaml:"success_threshold"`
	RecoveryTimeout  string `yaml:"recovery_timeout"`

	// Default total timeout for guarded operations
	DefaultTimeout string `yaml:"default_timeout"`
}

// SkillsConfig configures instruction document loading.
type SkillsConfig struct {
	// Directories scanned for documents, relative to .steward/.
	CommandDir string `yaml:"command_dir"`
	SkillDir   string `yaml:"skill_dir"`

	// Tools a document may declare in its `requires` frontmatter list.
	AllowedTools []string `yaml:"allowed_tools"`

	// Enable the hot-reload watcher.
	WatchEnabled bool `yaml:"watch_enabled"`
}

// RegistryConfig configures module discovery and tagging.
type RegistryConfig struct {
	// Additional tag rules: regex pattern -> tag.
	TagRules []TagRule `yaml:"tag_rules"`

	// Directory names skipped during workspace scans.
	IgnoreDirs []string `yaml:"ignore_dirs"`
}

// TagRule maps a path regex to a tag.
type TagRule struct {
	Pattern string `yaml:"pattern"`
	Tag     string `yaml:"tag"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text

	// Audit log retention
	AuditMaxFileSize int64 `yaml:"audit_max_file_size"`
	AuditMaxFiles    int   `yaml:"audit_max_files"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "steward",
		Version: "0.3.0",

		Policy: PolicyConfig{
			ConfirmTTL:   "15m",
			DefaultLevel: "active",
		},

		Goal: GoalConfig{
			DocumentPath:            "GOAL.md",
			RequireProgressOnCommit: true,
		},

		Guard: GuardConfig{
			RateCapacity:     100,
			RateRefill:       10,
			FailureThreshold: 5,
			SuccessThreshold: 3,
			RecoveryTimeout:  "30s",
			DefaultTimeout:   "60s",
		},

		Skills: SkillsConfig{
			CommandDir: "commands",
			SkillDir:   "skills",
			AllowedTools: []string{
				"read", "edit", "write", "grep", "glob", "bash",
			},
			WatchEnabled: true,
		},

		Registry: RegistryConfig{
			IgnoreDirs: []string{".git", ".steward", "node_modules", "vendor"},
		},

		Logging: LoggingConfig{
			Level:            "info",
			Format:           "text",
			AuditMaxFileSize: 10 * 1024 * 1024,
			AuditMaxFiles:    10,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if ttl := os.Getenv("STEWARD_CONFIRM_TTL"); ttl != "" {
		c.Policy.ConfirmTTL = ttl
	}
	if level := os.Getenv("STEWARD_DEFAULT_LEVEL"); level != "" {
		c.Policy.DefaultLevel = level
	}
	if timeout := os.Getenv("STEWARD_DEFAULT_TIMEOUT"); timeout != "" {
		c.Guard.DefaultTimeout = timeout
	}
	if capacity := os.Getenv("STEWARD_RATE_CAPACITY"); capacity != "" {
		if v, err := strconv.ParseFloat(capacity, 64); err == nil {
			c.Guard.RateCapacity = v
		}
	}
	if refill := os.Getenv("STEWARD_RATE_REFILL"); refill != "" {
		if v, err := strconv.ParseFloat(refill, 64); err == nil {
			c.Guard.RateRefill = v
		}
	}
	if level := os.Getenv("STEWARD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetConfirmTTL returns the confirmation grant TTL as a duration.
func (c *Config) GetConfirmTTL() time.Duration {
	d, err := time.ParseDuration(c.Policy.ConfirmTTL)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// GetRecoveryTimeout returns the circuit breaker recovery timeout as a duration.
func (c *Config) GetRecoveryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Guard.RecoveryTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetDefaultTimeout returns the default guarded-operation timeout as a duration.
func (c *Config) GetDefaultTimeout() time.Duration {
	d, err := time.ParseDuration(c.Guard.DefaultTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ValidLevels lists the protection levels a module record may carry.
var ValidLevels = []string{"active", "stable", "core"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validLevel := false
	for _, l := range ValidLevels {
		if c.Policy.DefaultLevel == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid default protection level: %s (valid: %v)", c.Policy.DefaultLevel, ValidLevels)
	}

	if c.Guard.RateCapacity <= 0 {
		return fmt.Errorf("rate capacity must be positive, got %v", c.Guard.RateCapacity)
	}
	if c.Guard.RateRefill <= 0 {
		return fmt.Errorf("rate refill must be positive, got %v", c.Guard.RateRefill)
	}
	if c.Guard.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be at least 1, got %d", c.Guard.FailureThreshold)
	}

	return nil
}

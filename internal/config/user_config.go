package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserConfig holds workspace-specific settings from .steward/config.json.
type UserConfig struct {
	// Enable debug logging under .steward/logs/.
	DebugMode bool `json:"debug_mode,omitempty"`

	// Per-category log toggles. Empty means all categories enabled.
	Categories map[string]bool `json:"categories,omitempty"`

	// Log level (debug, info, warn, error).
	Level string `json:"level,omitempty"`

	// Operator identity recorded on confirmation grants and history entries.
	Operator string `json:"operator,omitempty"`

	// UI theme for rendered output (auto, dark, light, notty).
	Theme string `json:"theme,omitempty"`
}

// DefaultUserConfig returns the settings seeded by workspace init.
func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		DebugMode: false,
		Level:     "info",
		Theme:     "auto",
	}
}

// DefaultUserConfigPath returns the default path to .steward/config.json.
func DefaultUserConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".steward", "config.json")
	}
	return filepath.Join(cwd, ".steward", "config.json")
}

// LoadUserConfig loads configuration from .steward/config.json.
func LoadUserConfig(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return empty config if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to .steward/config.json.
func (c *UserConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	return nil
}

// GetTheme returns the configured theme, defaulting to auto.
func (c *UserConfig) GetTheme() string {
	if c.Theme == "" {
		return "auto"
	}
	return c.Theme
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "active", cfg.Policy.DefaultLevel)
	assert.Equal(t, 15*time.Minute, cfg.GetConfirmTTL())
	assert.Equal(t, 30*time.Second, cfg.GetRecoveryTimeout())
	assert.Equal(t, 60*time.Second, cfg.GetDefaultTimeout())
	assert.Equal(t, float64(100), cfg.Guard.RateCapacity)
	assert.True(t, cfg.Goal.RequireProgressOnCommit)
	assert.Contains(t, cfg.Skills.AllowedTools, "read")
	assert.Contains(t, cfg.Registry.IgnoreDirs, ".git")
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "steward.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Policy.ConfirmTTL, cfg.Policy.ConfirmTTL)
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.yaml")

	cfg := DefaultConfig()
	cfg.Name = "demo"
	cfg.Policy.ConfirmTTL = "45m"
	cfg.Guard.FailureThreshold = 7
	cfg.Registry.TagRules = []TagRule{{Pattern: `\.proto$`, Tag: "proto"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", loaded.Name)
	assert.Equal(t, 45*time.Minute, loaded.GetConfirmTTL())
	assert.Equal(t, 7, loaded.Guard.FailureThreshold)
	require.Len(t, loaded.Registry.TagRules, 1)
	assert.Equal(t, "proto", loaded.Registry.TagRules[0].Tag)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy:\n  confirm_ttl: 5m\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.GetConfirmTTL())
	// Untouched sections keep their defaults
	assert.Equal(t, 5, cfg.Guard.FailureThreshold)
	assert.Equal(t, "GOAL.md", cfg.Goal.DocumentPath)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STEWARD_CONFIRM_TTL", "2h")
	t.Setenv("STEWARD_DEFAULT_LEVEL", "stable")
	t.Setenv("STEWARD_RATE_CAPACITY", "50")

	cfg, err := Load(filepath.Join(t.TempDir(), "steward.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, cfg.GetConfirmTTL())
	assert.Equal(t, "stable", cfg.Policy.DefaultLevel)
	assert.Equal(t, float64(50), cfg.Guard.RateCapacity)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Policy.DefaultLevel = "locked" }},
		{"zero capacity", func(c *Config) { c.Guard.RateCapacity = 0 }},
		{"negative refill", func(c *Config) { c.Guard.RateRefill = -1 }},
		{"zero threshold", func(c *Config) { c.Guard.FailureThreshold = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetDurations_FallBackOnGarbage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.ConfirmTTL = "soon"
	cfg.Guard.RecoveryTimeout = "whenever"
	cfg.Guard.DefaultTimeout = ""

	assert.Equal(t, 15*time.Minute, cfg.GetConfirmTTL())
	assert.Equal(t, 30*time.Second, cfg.GetRecoveryTimeout())
	assert.Equal(t, 60*time.Second, cfg.GetDefaultTimeout())
}

func TestUserConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".steward", "config.json")

	uc := DefaultUserConfig()
	uc.Operator = "alex"
	uc.DebugMode = true
	uc.Categories = map[string]bool{"goal": true, "guard": false}
	require.NoError(t, uc.Save(path))

	loaded, err := LoadUserConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "alex", loaded.Operator)
	assert.True(t, loaded.DebugMode)
	assert.False(t, loaded.Categories["guard"])
	assert.Equal(t, "auto", loaded.GetTheme())
}

func TestLoadUserConfig_Missing(t *testing.T) {
	uc, err := LoadUserConfig(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.False(t, uc.DebugMode)
}

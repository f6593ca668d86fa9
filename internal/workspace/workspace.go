// Package workspace initializes and locates the .steward state directory
// and the seed documents a governed project starts from.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"steward/internal/config"
	"steward/internal/goal"
	"steward/internal/project"
)

// DirName is the state directory at the workspace root.
const DirName = ".steward"

// StewardDir returns the state directory path for a workspace.
func StewardDir(workspace string) string {
	return filepath.Join(workspace, DirName)
}

// IsInitialized reports whether the workspace has a state directory.
func IsInitialized(workspace string) bool {
	info, err := os.Stat(StewardDir(workspace))
	return err == nil && info.IsDir()
}

// Init creates the state directory, seed documents, and default configs.
// It is idempotent: existing files are left untouched.
func Init(workspace, projectName string) error {
	stewardDir := StewardDir(workspace)

	dirs := []string{
		stewardDir,
		filepath.Join(stewardDir, "logs"),
		filepath.Join(stewardDir, "commands"),
		filepath.Join(stewardDir, "skills"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}

	if !project.Exists(workspace) {
		d := &project.Descriptor{Name: projectName}
		d.AppendHistory("Project initialized.")
		if err := project.Save(workspace, d); err != nil {
			return err
		}
	}

	goalPath := filepath.Join(workspace, goal.DocumentName)
	if _, err := os.Stat(goalPath); os.IsNotExist(err) {
		if err := goal.WriteDocument(workspace, nil); err != nil {
			return err
		}
	}

	configPath := filepath.Join(workspace, "steward.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		cfg.Name = projectName
		if err := cfg.Save(configPath); err != nil {
			return err
		}
	}

	userConfigPath := filepath.Join(stewardDir, "config.json")
	if _, err := os.Stat(userConfigPath); os.IsNotExist(err) {
		uc := config.DefaultUserConfig()
		if err := uc.Save(userConfigPath); err != nil {
			return err
		}
	}

	return nil
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"steward/internal/workspace"
)

var initName string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize steward in a project",
	Long: `Creates the .steward state directory and seeds the governing
documents:

  PROJECT.md    empty module table, no goal, one history entry
  GOAL.md       no-active-goal placeholder
  steward.yaml  default configuration

Existing files are never overwritten; init is safe to re-run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws := resolveWorkspace()

		name := initName
		if name == "" {
			name = filepath.Base(ws)
		}

		already := workspace.IsInitialized(ws)
		if err := workspace.Init(ws, name); err != nil {
			return err
		}

		if already {
			fmt.Println(mutedStyle.Render("Workspace already initialized; missing files restored."))
			return nil
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("Initialized steward workspace for %q in %s", name, ws)))
		fmt.Println(mutedStyle.Render("Edit PROJECT.md to register modules, then 'steward goal set' to start."))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "project name (default: workspace directory name)")
}

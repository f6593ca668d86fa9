// Package main implements the steward CLI - a project governance tool that
// keeps PROJECT.md, GOAL.md, and the protection policy they describe in sync
// with what an operator (human or agent) is allowed to do.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"steward/internal/logging"
)

var (
	// Global flags
	verbose      bool
	workspaceDir string
	operator     string
	timeout      time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "steward - project governance for agent-assisted development",
	Long: `steward keeps a project's governing documents and the rules they
describe enforceable:

  PROJECT.md  module table with protection levels, current goal, history
  GOAL.md     the active goal with progress and completion criteria

Modules carry a protection level (active, stable, core) that decides
whether an edit is allowed, needs operator confirmation, or is refused.
Goals move through in_progress, blocked, and completed; history is
append-only.

Run 'steward init' in a project root to get started.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Category file loggers live under <workspace>/.steward/logs
		if err := logging.Initialize(resolveWorkspace()); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&operator, "operator", "", "operator identity recorded on grants and history")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "override the guarded-operation timeout")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(readprojectCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(goalCmd)
	rootCmd.AddCommand(protectCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(registryCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
}

// resolveWorkspace returns the --workspace flag or the working directory.
func resolveWorkspace() string {
	if workspaceDir != "" {
		return workspaceDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

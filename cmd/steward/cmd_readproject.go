package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"steward/internal/goal"
	"steward/internal/project"
)

var readprojectRaw bool

var readprojectCmd = &cobra.Command{
	Use:   "readproject",
	Short: "Display the project descriptor and current goal",
	Long: `Reads PROJECT.md and GOAL.md and renders them for the terminal.
This is the orientation step an agent runs before touching anything:
module boundaries, protection levels, the active goal, and the history
of what already happened.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		d, err := project.Load(a.workspace)
		if err != nil {
			return err
		}

		var sb strings.Builder
		sb.Write(project.Render(d))

		goalDoc, err := os.ReadFile(filepath.Join(a.workspace, goal.DocumentName))
		if err == nil {
			sb.WriteString("\n---\n\n")
			sb.Write(goalDoc)
		}

		if readprojectRaw {
			fmt.Print(sb.String())
			return nil
		}
		fmt.Print(a.renderMarkdown(sb.String()))
		return nil
	},
}

func init() {
	readprojectCmd.Flags().BoolVar(&readprojectRaw, "raw", false, "print raw markdown without terminal styling")
}

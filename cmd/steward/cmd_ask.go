package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"steward/internal/goal"
	"steward/internal/project"
)

var askCmd = &cobra.Command{
	Use:   "ask [path...]",
	Short: "Answer a read-only question about the project",
	Long: `Builds a context packet without changing anything: the project
summary, the active goal, and for each path argument the owning module,
its protection level, and the resulting decision.

Agents call this before an edit to learn whether the edit would be
allowed, need confirmation, or be refused. Nothing is granted here;
use 'steward protect confirm' for that.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return a.guard.Execute(cmd.Context(), "ask", strings.Join(args, ","), func(ctx context.Context) error {
			return runAsk(a, args)
		})
	},
}

func runAsk(a *app, paths []string) error {
	d, err := project.Load(a.workspace)
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Name)
	fmt.Fprintf(&sb, "%d modules, %d history entries.\n\n", len(d.Modules), len(d.History))

	g, err := a.goals.Active()
	switch {
	case err == nil:
		fmt.Fprintf(&sb, "**Goal (%s):** %s\n", g.Status, g.Description)
		if len(g.Progress) > 0 {
			fmt.Fprintf(&sb, "Last progress: %s\n", g.Progress[len(g.Progress)-1].Note)
		}
	case errors.Is(err, goal.ErrNoActiveGoal):
		sb.WriteString("**Goal:** none\n")
	default:
		return err
	}

	if len(paths) > 0 {
		sb.WriteString("\n## Paths\n\n")
		for _, p := range paths {
			res, err := a.policy.Check(p)
			if err != nil {
				return err
			}
			module := res.Module
			if module == "" {
				module = "(unlisted)"
			}
			fmt.Fprintf(&sb, "- `%s` — module %s, level %s: **%s**\n", res.Path, module, res.Level, res.Decision)
		}
	}

	fmt.Print(a.renderMarkdown(sb.String()))
	return nil
}

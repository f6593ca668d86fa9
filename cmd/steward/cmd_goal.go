package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"steward/internal/goal"
	"steward/internal/logging"
	"steward/internal/project"
)

var (
	goalForce    bool
	goalPriority string
	goalCriteria []string
)

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Manage the single active goal",
	Long: `A workspace tracks at most one active goal. Completed goals stay
in the database as history; setting a new goal while one is active
requires --force and supersedes the old one.

Examples:
  steward goal set "Ship the v2 parser" --criteria "all tests pass"
  steward goal note "lexer rewritten"
  steward goal block "waiting on upstream fix"
  steward goal unblock
  steward goal done`,
}

var goalShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the active goal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.goals.Active()
		if errors.Is(err, goal.ErrNoActiveGoal) {
			fmt.Println(mutedStyle.Render("No active goal."))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Print(a.renderMarkdown(string(goal.Render(g))))
		return nil
	},
}

var goalSetCmd = &cobra.Command{
	Use:   "set [description]",
	Short: "Set the active goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return guardGoal(a, cmd.Context(), args[0], func() error {
			return runGoalSet(a, args[0])
		})
	},
}

func runGoalSet(a *app, description string) error {
	priority, err := parsePriority(goalPriority)
	if err != nil {
		return err
	}

	g, err := a.goals.Set(description, priority, goalCriteria, goalForce)
	if errors.Is(err, goal.ErrActiveGoalExists) {
		return fmt.Errorf("%w (use --force to supersede it)", err)
	}
	if err != nil {
		return err
	}

	if err := a.syncDocuments(g); err != nil {
		return err
	}
	a.audit.GoalTransition(logging.AuditGoalSet, g.ID, "", string(g.Status))
	fmt.Println(okStyle.Render("Goal set: " + g.Description))
	return nil
}

var goalDoneCmd = &cobra.Command{
	Use:   "done",
	Short: "Complete the active goal",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return guardGoal(a, cmd.Context(), "done", func() error {
			return runGoalDone(a)
		})
	},
}

func runGoalDone(a *app) error {
	g, err := a.goals.Done()
	if err != nil {
		return goalErr(err)
	}

	// Completion lands in the project history; the goal pointer clears.
	d, err := project.Load(a.workspace)
	if err != nil {
		return err
	}
	d.AppendHistory(goal.Summary(g, "completed"))
	if err := project.Save(a.workspace, d); err != nil {
		return err
	}
	if err := a.syncDocuments(g); err != nil {
		return err
	}

	a.audit.GoalTransition(logging.AuditGoalDone, g.ID, string(goal.StatusInProgress), string(g.Status))
	fmt.Println(okStyle.Render("Goal completed: " + g.Description))
	return nil
}

var goalBlockCmd = &cobra.Command{
	Use:   "block [reason]",
	Short: "Mark the active goal blocked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return guardGoal(a, cmd.Context(), args[0], func() error {
			return runGoalBlock(a, args[0])
		})
	},
}

func runGoalBlock(a *app, reason string) error {
	g, err := a.goals.Block(reason)
	if err != nil {
		return goalErr(err)
	}
	if err := a.syncDocuments(g); err != nil {
		return err
	}

	a.audit.GoalTransition(logging.AuditGoalBlock, g.ID, string(goal.StatusInProgress), string(g.Status))
	fmt.Println(warnStyle.Render("Goal blocked: " + reason))
	return nil
}

var goalUnblockCmd = &cobra.Command{
	Use:   "unblock",
	Short: "Return a blocked goal to in_progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return guardGoal(a, cmd.Context(), "unblock", func() error {
			return runGoalUnblock(a)
		})
	},
}

func runGoalUnblock(a *app) error {
	g, err := a.goals.Unblock()
	if err != nil {
		return goalErr(err)
	}
	if err := a.syncDocuments(g); err != nil {
		return err
	}

	a.audit.GoalTransition(logging.AuditGoalUnblock, g.ID, string(goal.StatusBlocked), string(g.Status))
	fmt.Println(okStyle.Render("Goal unblocked."))
	return nil
}

var goalNoteCmd = &cobra.Command{
	Use:   "note [text]",
	Short: "Append a progress note to the active goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return guardGoal(a, cmd.Context(), args[0], func() error {
			return runGoalNote(a, args[0])
		})
	},
}

func runGoalNote(a *app, note string) error {
	g, err := a.goals.AppendProgress(note)
	if err != nil {
		return goalErr(err)
	}
	if err := a.syncDocuments(g); err != nil {
		return err
	}

	a.audit.Log(logging.AuditEvent{
		EventType: logging.AuditGoalNote,
		Severity:  logging.SeverityInfo,
		Operator:  a.operatorName(),
		Target:    g.ID,
		Message:   note,
	})
	fmt.Println(okStyle.Render("Progress noted."))
	return nil
}

var goalHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List past goals, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		goals, err := a.goals.List(20)
		if err != nil {
			return err
		}
		if len(goals) == 0 {
			fmt.Println(mutedStyle.Render("No goals recorded."))
			return nil
		}

		for _, g := range goals {
			marker := "•"
			switch g.Status {
			case goal.StatusCompleted:
				marker = okStyle.Render("✓")
			case goal.StatusBlocked:
				marker = errStyle.Render("✗")
			}
			fmt.Printf("%s %s  %s (%s)\n", marker, g.CreatedAt.Format("2006-01-02"), g.Description, g.Status)
		}
		return nil
	},
}

// guardGoal runs a goal mutation under the shared "goal" rate limit and
// breaker so transitions count in the operation stats like commits do.
func guardGoal(a *app, ctx context.Context, target string, fn func() error) error {
	return a.guard.Execute(ctx, "goal", target, func(context.Context) error {
		return fn()
	})
}

// goalErr rewrites store errors into actionable CLI messages.
func goalErr(err error) error {
	var terr *goal.TransitionError
	switch {
	case errors.Is(err, goal.ErrNoActiveGoal):
		return fmt.Errorf("no active goal (set one with 'steward goal set')")
	case errors.As(err, &terr):
		if terr.From == goal.StatusBlocked {
			return fmt.Errorf("the goal is blocked; run 'steward goal unblock' first")
		}
		return terr
	}
	return err
}

func parsePriority(s string) (goal.Priority, error) {
	switch strings.ToLower(s) {
	case "low":
		return goal.PriorityLow, nil
	case "", "normal":
		return goal.PriorityNormal, nil
	case "high":
		return goal.PriorityHigh, nil
	}
	return 0, fmt.Errorf("unknown priority %q (valid: low, normal, high)", s)
}

func init() {
	goalSetCmd.Flags().BoolVar(&goalForce, "force", false, "supersede an existing active goal")
	goalSetCmd.Flags().StringVar(&goalPriority, "priority", "normal", "goal priority (low, normal, high)")
	goalSetCmd.Flags().StringSliceVar(&goalCriteria, "criteria", nil, "completion criterion (repeatable)")

	goalCmd.AddCommand(goalShowCmd)
	goalCmd.AddCommand(goalSetCmd)
	goalCmd.AddCommand(goalDoneCmd)
	goalCmd.AddCommand(goalBlockCmd)
	goalCmd.AddCommand(goalUnblockCmd)
	goalCmd.AddCommand(goalNoteCmd)
	goalCmd.AddCommand(goalHistoryCmd)
}

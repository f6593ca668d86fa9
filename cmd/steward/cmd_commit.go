package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"steward/internal/goal"
	"steward/internal/logging"
	"steward/internal/policy"
	"steward/internal/project"
)

var (
	commitFiles    []string
	commitNoteGoal bool
)

var commitCmd = &cobra.Command{
	Use:   "commit [summary]",
	Short: "Record a unit of work in the project history",
	Long: `Validates a unit of work against the protection policy and the
goal state, then appends it to PROJECT.md's history.

The commit is refused when:
  - the active goal is blocked (unblock it first)
  - any --file resolves to a core-protected module
  - any --file needs confirmation and has no live grant
  - the goal requires progress and none was recorded (configurable)

On success the summary is appended to the history and, unless
--no-goal-note is set, to the active goal's progress log.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return a.guard.Execute(cmd.Context(), "commit", args[0], func(ctx context.Context) error {
			return runCommit(a, args[0])
		})
	},
}

func runCommit(a *app, summary string) error {
	g, err := a.goals.Active()
	if err != nil && !errors.Is(err, goal.ErrNoActiveGoal) {
		return err
	}

	if g != nil && g.Status == goal.StatusBlocked {
		a.audit.Log(logging.AuditEvent{
			EventType: logging.AuditCommitReject,
			Severity:  logging.SeverityWarning,
			Operator:  a.operatorName(),
			Message:   "commit rejected: goal is blocked",
		})
		return fmt.Errorf("the active goal is blocked; unblock it before committing")
	}

	if g != nil && a.cfg.Goal.RequireProgressOnCommit && len(g.Progress) == 0 {
		return fmt.Errorf("no progress recorded on the active goal; add one with 'steward goal note' or disable require_progress_on_commit")
	}

	// Every touched file must pass the protection policy.
	var needConfirm []string
	for _, f := range commitFiles {
		res, err := a.policy.Check(f)
		if err != nil {
			return err
		}
		switch res.Decision {
		case policy.DecisionRefuse:
			a.audit.Log(logging.AuditEvent{
				EventType: logging.AuditCommitReject,
				Severity:  logging.SeverityWarning,
				Operator:  a.operatorName(),
				Target:    res.Path,
				Message:   "commit rejected: core-protected path",
			})
			return fmt.Errorf("%s is core-protected (module %s); core files are never committed through steward", res.Path, res.Module)
		case policy.DecisionConfirm:
			needConfirm = append(needConfirm, res.Path)
		}
	}
	if len(needConfirm) > 0 {
		return fmt.Errorf("stable paths need confirmation first: %s (run 'steward protect confirm <path>')",
			strings.Join(needConfirm, ", "))
	}

	d, err := project.Load(a.workspace)
	if err != nil {
		return err
	}
	d.AppendHistory(summary)
	if err := project.Save(a.workspace, d); err != nil {
		return err
	}

	if g != nil && !commitNoteGoal {
		if _, err := a.goals.AppendProgress(summary); err != nil {
			return err
		}
		refreshed, err := a.goals.Active()
		if err == nil {
			g = refreshed
		}
		if err := a.syncDocuments(g); err != nil {
			return err
		}
	}

	a.audit.CommitRecord(a.operatorName(), summary)
	fmt.Println(okStyle.Render("Recorded: " + summary))
	return nil
}

func init() {
	commitCmd.Flags().StringSliceVarP(&commitFiles, "file", "f", nil, "file touched by this work (repeatable)")
	commitCmd.Flags().BoolVar(&commitNoteGoal, "no-goal-note", false, "do not append the summary to the goal's progress log")
}

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"steward/internal/guard"
	"steward/internal/policy"
)

var protectCmd = &cobra.Command{
	Use:   "protect",
	Short: "Check and confirm protection levels",
	Long: `Protection levels come from PROJECT.md's module table:

  active  edits are unrestricted
  stable  edits need a confirmation grant (time-limited)
  core    edits are refused; change the table itself to unlock

Examples:
  steward protect check internal/parser/lexer.go
  steward protect confirm internal/parser/lexer.go
  steward protect grants`,
}

var protectCheckCmd = &cobra.Command{
	Use:   "check [path...]",
	Short: "Resolve the protection decision for paths",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return runProtectCheck(a, args)
	},
}

func runProtectCheck(a *app, paths []string) error {
	for _, p := range paths {
		start := time.Now()
		res, err := a.policy.Check(p)
		if err != nil {
			a.collector.Record("protect", p, guard.OutcomeFail, time.Since(start))
			return err
		}
		a.collector.Record("protect", res.Path, guard.OutcomeSuccess, time.Since(start))
		fmt.Println(formatDecision(res))
	}
	return nil
}

var protectConfirmCmd = &cobra.Command{
	Use:   "confirm [path]",
	Short: "Grant a time-limited edit confirmation for a stable path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return runProtectConfirm(a, args[0])
	},
}

func runProtectConfirm(a *app, path string) error {
	start := time.Now()
	grant, err := a.policy.Confirm(path, a.operatorName())
	outcome := guard.OutcomeSuccess
	if err != nil {
		outcome = guard.OutcomeFail
	}
	a.collector.Record("protect", path, outcome, time.Since(start))

	switch {
	case errors.Is(err, policy.ErrCoreProtected):
		return fmt.Errorf("%s is core-protected; lower its module's level in PROJECT.md to edit it", path)
	case errors.Is(err, policy.ErrNoConfirmNeeded):
		fmt.Println(mutedStyle.Render("No confirmation needed; the path is already editable."))
		return nil
	case err != nil:
		return err
	}

	fmt.Println(okStyle.Render(fmt.Sprintf("Granted: %s (module %s) until %s",
		grant.Path, grant.Module, grant.ExpiresAt.Format(time.Kitchen))))
	return nil
}

var protectGrantsCmd = &cobra.Command{
	Use:   "grants",
	Short: "List live confirmation grants",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		grants := a.policy.Grants()
		if len(grants) == 0 {
			fmt.Println(mutedStyle.Render("No live grants."))
			return nil
		}
		for _, g := range grants {
			fmt.Printf("%s  approved by %s, expires %s\n",
				g.Path, g.ApprovedBy, g.ExpiresAt.Format(time.RFC3339))
		}
		return nil
	},
}

func formatDecision(res policy.CheckResult) string {
	module := res.Module
	if module == "" {
		module = "(unlisted)"
	}
	line := fmt.Sprintf("%s  module=%s level=%s", res.Path, module, res.Level)
	switch res.Decision {
	case policy.DecisionAllow:
		if res.Granted {
			return okStyle.Render("ALLOW   ") + line + mutedStyle.Render("  (granted)")
		}
		return okStyle.Render("ALLOW   ") + line
	case policy.DecisionConfirm:
		return warnStyle.Render("CONFIRM ") + line
	default:
		return errStyle.Render("REFUSE  ") + line
	}
}

func init() {
	protectCmd.AddCommand(protectCheckCmd)
	protectCmd.AddCommand(protectConfirmCmd)
	protectCmd.AddCommand(protectGrantsCmd)
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"steward/internal/goal"
	"steward/internal/project"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace health at a glance",
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

		fmt.Println(titleStyle.Render("Project: " + d.Name))
		fmt.Printf("  Workspace: %s\n", a.workspace)

		byLevel := map[project.Level]int{}
		for _, m := range d.Modules {
			byLevel[m.Level]++
		}
		fmt.Printf("  Modules:   %d (%d active, %d stable, %d core)\n",
			len(d.Modules), byLevel[project.LevelActive], byLevel[project.LevelStable], byLevel[project.LevelCore])
		fmt.Printf("  History:   %d entries\n", len(d.History))

		g, err := a.goals.Active()
		switch {
		case errors.Is(err, goal.ErrNoActiveGoal):
			fmt.Println("  Goal:      " + mutedStyle.Render("none"))
		case err != nil:
			return err
		case g.Status == goal.StatusBlocked:
			fmt.Println("  Goal:      " + errStyle.Render("[blocked] ") + g.Description)
		default:
			fmt.Printf("  Goal:      %s (%d progress notes)\n", g.Description, len(g.Progress))
		}

		if grants := a.policy.Grants(); len(grants) > 0 {
			fmt.Printf("  Grants:    %d live\n", len(grants))
		}

		if count, err := a.loader.LoadAll(); err == nil {
			fmt.Printf("  Documents: %d loaded\n", count)
		}

		auditStats := a.audit.Stats()
		if auditStats.TotalEvents > 0 {
			fmt.Printf("  Audit:     %d events this session\n", auditStats.TotalEvents)
		}
		return nil
	},
}

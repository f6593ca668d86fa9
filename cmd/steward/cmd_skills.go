package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"steward/internal/logging"
	"steward/internal/skills"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Manage instruction documents",
	Long: `Instruction documents are markdown files with YAML frontmatter under
.steward/commands and .steward/skills. They carry the prompts and tool
requirements an agent loads per command. Identical files dedupe by
checksum; documents requiring tools outside the allow list are skipped.`,
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded instruction documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.loader.LoadAll()
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println(mutedStyle.Render("No instruction documents found."))
			return nil
		}

		for _, doc := range a.loader.List() {
			requires := ""
			if len(doc.Requires) > 0 {
				requires = mutedStyle.Render("  requires: " + strings.Join(doc.Requires, ", "))
			}
			fmt.Printf("%s %s  %s%s\n",
				titleStyle.Render(fmt.Sprintf("%-8s", doc.Kind)),
				doc.Name, doc.Description, requires)
		}
		return nil
	},
}

var skillsReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Rescan the instruction directories once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return a.guard.Execute(cmd.Context(), "reload", "", func(ctx context.Context) error {
			count, err := a.loader.LoadAll()
			if err != nil {
				a.audit.SkillEvent(logging.AuditSkillError, "", "", err)
				return err
			}
			a.audit.SkillEvent(logging.AuditSkillReload, "", "", nil)
			fmt.Println(okStyle.Render(fmt.Sprintf("Loaded %d documents.", count)))
			return nil
		})
	},
}

var skillsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the instruction directories and hot-reload on change",
	Long: `Blocks and reloads the document set whenever a file under
.steward/commands or .steward/skills settles after editing.
Stop with Ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.cfg.Skills.WatchEnabled {
			return fmt.Errorf("watching is disabled (skills.watch_enabled in steward.yaml)")
		}

		count, err := a.loader.LoadAll()
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render(fmt.Sprintf("Loaded %d documents; watching for changes...", count)))

		w, err := skills.NewWatcher(a.loader, func(count int) {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("Reloaded %d documents.", count)))
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		if err := w.Start(ctx); err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		w.Stop()
		stats := w.Stats()
		fmt.Println(mutedStyle.Render(fmt.Sprintf("Stopped after %d reloads, %d errors.", stats.Reloads, stats.Errors)))
		return nil
	},
}

var skillsShowCmd = &cobra.Command{
	Use:   "show [kind] [name]",
	Short: "Print one instruction document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.loader.LoadAll(); err != nil {
			return err
		}

		doc, ok := a.loader.Get(skills.Kind(args[0]), args[1])
		if !ok {
			return fmt.Errorf("no %s named %q", args[0], args[1])
		}
		fmt.Print(a.renderMarkdown(doc.Body))
		return nil
	},
}

func init() {
	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsReloadCmd)
	skillsCmd.AddCommand(skillsWatchCmd)
	skillsCmd.AddCommand(skillsShowCmd)
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"steward/internal/registry"
)

var (
	registryTag    string
	registryPrefix string
	registryModule string
	registryLimit  int
	registryOffset int
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Scan and query the workspace asset inventory",
	Long: `The registry keeps a tagged inventory of workspace files and maps
each to its owning module from PROJECT.md. Scans run the top-level
directories in parallel and prune assets that disappeared.

Examples:
  steward registry scan
  steward registry list --tag tests
  steward registry list --module parser --limit 20`,
}

var registryScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rescan the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		reg, err := a.newRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()

		return a.guard.Execute(cmd.Context(), "scan", a.workspace, func(ctx context.Context) error {
			res, err := reg.Scan(ctx)
			if err != nil {
				return err
			}
			fmt.Println(okStyle.Render(fmt.Sprintf("Scanned %d assets (%d removed) in %s",
				res.Scanned, res.Removed, res.Duration.Round(time.Millisecond))))
			return nil
		})
	},
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventoried assets",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		reg, err := a.newRegistry()
		if err != nil {
			return err
		}
		defer reg.Close()

		assets, err := reg.List(registry.Filter{
			Tag:    registryTag,
			Prefix: registryPrefix,
			Module: registryModule,
			Limit:  registryLimit,
			Offset: registryOffset,
		})
		if err != nil {
			return err
		}
		if len(assets) == 0 {
			fmt.Println(mutedStyle.Render("No assets match (run 'steward registry scan' first)."))
			return nil
		}

		for _, asset := range assets {
			module := asset.Module
			if module == "" {
				module = "-"
			}
			fmt.Printf("%-50s %-12s %v\n", asset.Path, module, asset.Tags)
		}
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%d assets.", len(assets))))
		return nil
	},
}

func init() {
	registryListCmd.Flags().StringVar(&registryTag, "tag", "", "filter by tag")
	registryListCmd.Flags().StringVar(&registryPrefix, "prefix", "", "filter by path prefix")
	registryListCmd.Flags().StringVar(&registryModule, "module", "", "filter by owning module")
	registryListCmd.Flags().IntVar(&registryLimit, "limit", 0, "page size (0 lists everything)")
	registryListCmd.Flags().IntVar(&registryOffset, "offset", 0, "matching assets to skip")

	registryCmd.AddCommand(registryScanCmd)
	registryCmd.AddCommand(registryListCmd)
}

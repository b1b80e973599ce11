package commands

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikixstore/storefront/cmd/storefront/output"
	"github.com/nikixstore/storefront/pkg/sizes"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Rebuild or inspect the read cache",
}

var cacheRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Reload the read cache from the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.svc.RebuildCache(ctx); err != nil {
				return err
			}
			output.Success("Read cache rebuilt")
			return nil
		})
	},
}

var cacheBrandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List the brands offered in the catalog menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			brands, err := a.svc.Brands(ctx)
			if err != nil {
				return err
			}
			if len(brands) == 0 {
				output.Info("No brands")
				return nil
			}
			for _, b := range brands {
				output.Muted("%s", b)
			}
			return nil
		})
	},
}

var sizesCmd = &cobra.Command{
	Use:   "sizes",
	Short: "Refresh or inspect size availability",
}

var sizesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch sizes for every product now",
	Long: `Fetch sizes for every product once. Articles whose fetch fails keep
their previous sizes. The result is saved to SIZES_CACHE_PATH.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.svc.Sizes().Load(); err != nil {
				output.Warning("Starting from an empty size cache: %v", err)
			}
			report, err := a.svc.RefreshSizes(ctx)
			if err != nil {
				return err
			}
			output.Success("Checked %d article(s), %d updated in %s", report.Checked, report.Updated, report.Took.Round(time.Millisecond))
			if failed := report.Failed(); len(failed) > 0 {
				output.Warning("Failed: %s", strings.Join(failed, ", "))
			}
			return nil
		})
	},
}

var sizesShowCmd = &cobra.Command{
	Use:   "show [ARTICLE]",
	Short: "Show cached sizes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			cache := a.svc.Sizes()
			if err := cache.Load(); err != nil {
				return err
			}
			if len(args) == 1 {
				labels, ok := a.svc.ArticleSizes(args[0])
				if !ok {
					output.Info("No sizes cached for %s", args[0])
					return nil
				}
				output.Muted("%s: %s", args[0], strings.Join(labels, ", "))
				return nil
			}
			snapshot := cache.Snapshot()
			articles := make([]string, 0, len(snapshot))
			for art := range snapshot {
				articles = append(articles, art)
			}
			sort.Strings(articles)
			rows := make([][]string, 0, len(articles))
			for _, art := range articles {
				labels := append([]string(nil), snapshot[art]...)
				sizes.SortLabels(labels)
				rows = append(rows, []string{art, strings.Join(labels, " ")})
			}
			return output.Table([]string{"ARTICLE", "SIZES"}, rows)
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd, sizesCmd)
	cacheCmd.AddCommand(cacheRebuildCmd, cacheBrandsCmd)
	sizesCmd.AddCommand(sizesRefreshCmd, sizesShowCmd)
}

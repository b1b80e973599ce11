package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikixstore/storefront/cmd/storefront/output"
	"github.com/nikixstore/storefront/pkg/importer"
	"github.com/nikixstore/storefront/pkg/models"
)

var (
	fullImport bool
	confirmAll bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Import, export and edit products",
	Long: `Manage the product catalog. Every change rebuilds the read cache.

Subcommands:
  import  - Load products from a CSV file
  export  - Write the catalog as CSV
  delete  - Remove one product
  price   - Change a product's price
  link    - Change a product's channel post link
  wipe    - Remove every product`,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load products from a CSV file",
	Long: `Load products from a CSV file. Rows are upserted by article; a bad row
is reported with its line number and does not stop the others.

Examples:
  storefront catalog import products.csv          # Upsert by article
  storefront catalog import products.csv --full   # Replace the whole catalog
  storefront catalog import - < products.csv      # Read from stdin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCatalogImport(cmd.Context(), args[0])
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Write the catalog as CSV (stdout by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		return runCatalogExport(cmd.Context(), path)
	},
}

var catalogDeleteCmd = &cobra.Command{
	Use:   "delete ARTICLE",
	Short: "Remove one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.svc.DeleteProduct(ctx, args[0]); err != nil {
				return err
			}
			output.Success("Deleted %s", args[0])
			return nil
		})
	},
}

var catalogPriceCmd = &cobra.Command{
	Use:   "price ARTICLE PRICE",
	Short: "Change a product's price",
	Long: `Change a product's regular price.

Examples:
  storefront catalog price NK-001 12500
  storefront catalog price NK-001 "12 500"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			price, err := a.svc.ChangePrice(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			output.Success("%s now costs %s", args[0], models.FormatRub(price))
			return nil
		})
	},
}

var catalogLinkCmd = &cobra.Command{
	Use:   "link ARTICLE URL",
	Short: "Change a product's channel post link",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.svc.EditPostLink(ctx, args[0], args[1]); err != nil {
				return err
			}
			output.Success("Updated post link of %s", args[0])
			return nil
		})
	},
}

var catalogWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Remove every product",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmAll {
			return fmt.Errorf("refusing to delete every product without --yes")
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			n, err := a.svc.DeleteAllProducts(ctx)
			if err != nil {
				return err
			}
			output.Success("Deleted %d product(s)", n)
			return nil
		})
	},
}

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Manage extra product photos",
}

var photosImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the extra photo links from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			r, closeFn, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer closeFn()
			report, err := a.svc.ImportPhotos(ctx, r)
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd, photosCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogExportCmd, catalogDeleteCmd,
		catalogPriceCmd, catalogLinkCmd, catalogWipeCmd)
	photosCmd.AddCommand(photosImportCmd)

	catalogImportCmd.Flags().BoolVar(&fullImport, "full", false, "Delete every product before importing")
	catalogWipeCmd.Flags().BoolVar(&confirmAll, "yes", false, "Confirm deleting every product")
}

func runCatalogImport(ctx context.Context, path string) error {
	mode := importer.Incremental
	if fullImport {
		mode = importer.Full
	}
	return withApp(ctx, func(ctx context.Context, a *app) error {
		r, closeFn, err := openInput(path)
		if err != nil {
			return err
		}
		defer closeFn()
		report, err := a.svc.ImportCatalog(ctx, r, mode)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	})
}

func runCatalogExport(ctx context.Context, path string) error {
	return withApp(ctx, func(ctx context.Context, a *app) error {
		var w io.Writer = os.Stdout
		if path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			defer f.Close()
			w = f
		}
		n, err := a.svc.ExportCatalog(ctx, w)
		if err != nil {
			return err
		}
		if path != "-" {
			output.Success("Exported %d product(s) to %s", n, path)
		}
		return nil
	})
}

func printReport(r importer.Report) {
	if r.OK() {
		output.Success("%s", strings.TrimSpace(r.Summary()))
		return
	}
	output.Warning("%s", strings.TrimSpace(r.Summary()))
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// withApp opens the service for one command and closes it afterwards.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbURL   string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront - catalog, drop and order administration",
	Long: `Storefront runs the shop's chat back end and administers its data.

Commands:
  serve     - Run the service with the size refresher and the admin HTTP API
  migrate   - Create or inspect the database schema
  catalog   - Import, export and edit products
  photos    - Import extra product photos
  cache     - Rebuild or inspect the read cache
  sizes     - Refresh or inspect size availability
  orders    - List orders and change their status
  drop      - Open, close or inspect the drop`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database connection URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file to preload")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

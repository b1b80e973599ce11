package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikixstore/storefront/cmd/storefront/output"
	"github.com/nikixstore/storefront/pkg/store"
)

var dryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or inspect the database schema",
	Long: `The schema is generated from the model struct tags.

Subcommands:
  up      - Apply pending migrations
  status  - Show migration status`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations to create the catalog schema.

Examples:
  storefront migrate up                # Apply everything pending
  storefront migrate up --dry-run      # Print the SQL without applying`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateUp(cmd.Context())
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateStatus(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	migrateUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the SQL without applying it")
}

func runMigrateUp(ctx context.Context) error {
	if dryRun {
		migrations, err := store.Migrations()
		if err != nil {
			return err
		}
		output.Section("DRY RUN - Preview")
		for _, m := range migrations {
			output.Info("%s - %s", m.Version, m.Name)
			output.Muted("%s", m.UpSQL)
		}
		return nil
	}

	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	applied, err := a.store.Migrate(ctx)
	if err != nil {
		output.Error("Migration failed: %v", err)
		return err
	}
	if len(applied) == 0 {
		output.Info("No pending migrations")
		return nil
	}
	for _, v := range applied {
		output.Success("Applied %s", v)
	}
	fmt.Fprintln(output.Out)
	output.Success("Successfully applied %d migration(s)", len(applied))
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	a, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	output.Section("Migration Status")
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		applied := "-"
		if r.AppliedAt != nil {
			applied = r.AppliedAt.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{output.MigrationIcon(string(r.Status)), r.Version, r.Name, applied})
	}
	return output.Table([]string{"", "VERSION", "NAME", "APPLIED AT"}, rows)
}

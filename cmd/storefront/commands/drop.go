package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nikixstore/storefront/cmd/storefront/output"
)

var dropPassword, dropStart, dropStop string

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Open, close or inspect the drop",
}

var dropOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Start a drop cycle",
	Long: `Start a drop cycle with a new shared password. Access granted in the
previous cycle is revoked.

Examples:
  storefront drop open --password spring --start "01.03 12:00" --stop "05.03 23:59"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if err := a.svc.OpenDrop(ctx, dropPassword, dropStart, dropStop); err != nil {
				return err
			}
			output.Success("Drop opened: %s - %s", dropStart, dropStop)
			return nil
		})
	},
}

var dropCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Take every product out of the drop and revoke access",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			n, err := a.svc.CloseDrop(ctx)
			if err != nil {
				return err
			}
			output.Success("Drop closed, %d product(s) back at regular price", n)
			return nil
		})
	},
}

var dropStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current drop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			info, err := a.svc.DropStatus(ctx)
			if err != nil {
				return err
			}
			if info.Password == "" {
				output.Info("No drop configured")
				return nil
			}
			output.Section("Drop")
			return output.Table([]string{"PASSWORD", "START", "STOP"},
				[][]string{{info.Password, info.StartDate, info.StopDate}})
		})
	},
}

func init() {
	rootCmd.AddCommand(dropCmd)
	dropCmd.AddCommand(dropOpenCmd, dropCloseCmd, dropStatusCmd)
	dropOpenCmd.Flags().StringVar(&dropPassword, "password", "", "Shared drop password")
	dropOpenCmd.Flags().StringVar(&dropStart, "start", "", "Start date shown to buyers")
	dropOpenCmd.Flags().StringVar(&dropStop, "stop", "", "Stop date shown to buyers")
	_ = dropOpenCmd.MarkFlagRequired("password")
}

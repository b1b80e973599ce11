package commands

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nikixstore/storefront/cmd/storefront/output"
	"github.com/nikixstore/storefront/cmd/storefront/tui"
	"github.com/nikixstore/storefront/pkg/orders"
)

var (
	ordersLimit int
	interactive bool
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders and change their status",
	Long: `Inspect orders by the number buyers see and move them through their
lifecycle. A status change is stored first and then mirrored to the buyer
and to the operations channel.

Subcommands:
  list    - Show the latest orders
  show    - Show one order
  status  - Change an order's status`,
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the latest orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			list, err := a.svc.RecentOrders(ctx, ordersLimit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				output.Info("No orders yet")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, o := range list {
				rows = append(rows, []string{
					output.StatusIcon(o.Status),
					fmt.Sprintf("#%d", o.DisplayID),
					o.Status.Label(),
					o.Method,
					o.CreatedAt.Format("02.01.2006 15:04"),
				})
			}
			return output.Table([]string{"", "ORDER", "STATUS", "DELIVERY", "PLACED"}, rows)
		})
	},
}

var ordersShowCmd = &cobra.Command{
	Use:   "show ORDER",
	Short: "Show one order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseOrderID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			v, err := a.svc.AdminOrder(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(output.Out, plainText(orders.ChannelText(*v)))
			return nil
		})
	},
}

var ordersStatusCmd = &cobra.Command{
	Use:   "status [ORDER CODE]",
	Short: "Change an order's status",
	Long: `Change an order's status by its number and status code:

  0 - placed, 1 - in transit, 2 - awaiting pickup, 3 - received, 4 - cancelled

Examples:
  storefront orders status 2001 1      # Mark #2001 as in transit
  storefront orders status -i          # Pick orders and statuses interactively`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if interactive {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return tui.RunOrdersUI(ctx, a.svc, ordersLimit)
			})
		}
		if len(args) != 2 {
			return fmt.Errorf("expected ORDER and CODE, or --interactive")
		}
		return runOrderStatus(cmd.Context(), args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.AddCommand(ordersListCmd, ordersShowCmd, ordersStatusCmd)
	ordersCmd.PersistentFlags().IntVar(&ordersLimit, "limit", 50, "Number of recent orders to load")
	ordersStatusCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run in interactive mode with TUI")
}

func runOrderStatus(ctx context.Context, rawID, rawCode string) error {
	id, err := parseOrderID(rawID)
	if err != nil {
		return err
	}
	code, err := strconv.Atoi(rawCode)
	if err != nil {
		return fmt.Errorf("status code %q is not a number", rawCode)
	}
	status, err := orders.ParseStatus(code)
	if err != nil {
		return err
	}
	return withApp(ctx, func(ctx context.Context, a *app) error {
		change, err := a.svc.SetOrderStatus(ctx, id, status)
		if err != nil {
			return err
		}
		output.Success("#%d: %s → %s", change.DisplayID, change.From.Label(), change.To.Label())
		for _, m := range change.Mirrors {
			output.Warning("%s", m.Error())
		}
		return nil
	})
}

func parseOrderID(raw string) (int64, error) {
	if len(raw) > 0 && raw[0] == '#' {
		raw = raw[1:]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("order number %q is not valid", raw)
	}
	return id, nil
}

var markup = regexp.MustCompile(`<[^>]+>`)

func plainText(html string) string {
	return markup.ReplaceAllString(html, "")
}

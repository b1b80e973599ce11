package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nikixstore/storefront/pkg/adminapi"
)

var (
	httpAddr        string
	noHTTP          bool
	shutdownTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the storefront service",
	Long: `Initialize every cache, start the size refresher and serve the admin
HTTP API until interrupted. The size cache is saved on shutdown.

Examples:
  storefront serve                     # Listen on ADMIN_HTTP_ADDR
  storefront serve --addr :9090        # Listen on another address
  storefront serve --no-http           # Size refresher only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&httpAddr, "addr", "", "Admin HTTP address (overrides ADMIN_HTTP_ADDR)")
	serveCmd.Flags().BoolVar(&noHTTP, "no-http", false, "Do not start the admin HTTP API")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "Time allowed for graceful shutdown")
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.Init(ctx); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	a.svc.StartBackground(ctx)

	g, gctx := errgroup.WithContext(ctx)
	var api *adminapi.Server
	if !noHTTP {
		addr := a.cfg.AdminHTTPAddr
		if httpAddr != "" {
			addr = httpAddr
		}
		api = adminapi.New(a.svc, a.log.With("component", "adminapi"))
		g.Go(func() error {
			if err := api.Listen(addr); err != nil {
				return fmt.Errorf("admin api: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		if api != nil {
			errs = append(errs, api.Shutdown(sctx))
		}
		errs = append(errs, a.svc.Shutdown(sctx))
		return errors.Join(errs...)
	})

	return g.Wait()
}

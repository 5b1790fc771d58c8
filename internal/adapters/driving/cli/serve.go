package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/answergrid/answergrid/internal/adapters/driving/httpserver"
	"github.com/answergrid/answergrid/internal/config"
	"github.com/answergrid/answergrid/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and background sync",
	Long: `Starts the webhook ingress, the query endpoint and the background
scheduler, and watches the config file for routing changes. Runs until
interrupted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := ensureServices()
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	if a.cfg == nil {
		return errors.New("serve requires a config file")
	}

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server := httpserver.NewServer(answerer, syncOrchestrator,
		httpserver.WithAddr(addr),
		httpserver.WithWebhookSecret(a.cfg.WebhookSecret()),
		httpserver.WithDemoMode(a.cfg.Resolver.DemoMode),
	)

	path := configPath
	if path == "" {
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	watcher, err := config.NewWatcher(path, 1, func(cfg *config.Config, version int64) {
		a.directory.Reload(cfg)
		a.resolver.Swap(cfg.BuildRoutingTable(version))
	})
	if err != nil {
		return err
	}
	defer watcher.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return a.scheduler.Start(gctx) })
	g.Go(func() error {
		err := watcher.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.Info("shut down")
	return err
}

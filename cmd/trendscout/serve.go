package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/abdulachik/trendscout/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingest daemon and HTTP API",
	Long: `Run trendscout as a daemon: ingest trends every MONITOR_INTERVAL and
serve the HTTP API on HTTP_ADDR until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, (*config.Config).ValidateForServe)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("starting trendscout daemon",
		"sources", a.Config.Sources,
		"monitor_interval", a.Config.MonitorInterval,
		"trend_window", a.Config.TrendWindow,
		"http_addr", a.Config.HTTPAddr,
	)

	sched := a.Scheduler()
	srv := a.Server()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gCtx)
	})
	g.Go(func() error {
		return srv.Run(gCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("shut down cleanly")
	return nil
}

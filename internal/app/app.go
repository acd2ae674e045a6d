package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/abdulachik/trendscout/internal/config"
	"github.com/abdulachik/trendscout/internal/db"
	"github.com/abdulachik/trendscout/internal/monitor"
	"github.com/abdulachik/trendscout/internal/scheduler"
	"github.com/abdulachik/trendscout/internal/server"
)

// App is the main application container holding all dependencies.
type App struct {
	Config     *config.Config
	Store      *db.Store
	Monitors   []monitor.Monitor
	Filter     *monitor.Filter
	Aggregator *monitor.Aggregator
	Health     *scheduler.Health
}

// New creates a new application instance with all dependencies wired up.
// The store is opened and migrated; callers must Close the App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	monitors := NewMonitors(cfg)

	filter := monitor.NewFilter(monitor.FilterConfig{
		Categories:   cfg.Categories,
		BlockedTerms: cfg.BlockedTerms,
	})

	agg := monitor.NewAggregator(monitor.AggregatorConfig{
		Store:    store,
		Monitors: monitors,
		Filter:   filter,
		Window:   cfg.TrendWindow,
	})

	return &App{
		Config:     cfg,
		Store:      store,
		Monitors:   monitors,
		Filter:     filter,
		Aggregator: agg,
		Health:     scheduler.NewHealth(),
	}, nil
}

// NewMonitors builds the trend sources enabled in cfg. They share one
// retrying HTTP client.
func NewMonitors(cfg *config.Config) []monitor.Monitor {
	client := monitor.NewHTTPClient(monitor.ClientConfig{RetryMax: cfg.HTTPRetryMax})

	var monitors []monitor.Monitor
	for _, source := range cfg.Sources {
		switch strings.ToLower(source) {
		case "x":
			monitors = append(monitors, monitor.NewXMonitor(monitor.XConfig{
				BaseURL:     cfg.XAPIBaseURL,
				BearerToken: cfg.XBearerToken,
				Client:      client,
			}))
		case "hackernews":
			monitors = append(monitors, monitor.NewHackerNewsMonitor(monitor.HackerNewsConfig{
				MaxStories: cfg.HackerNewsMaxStories,
				Client:     client,
			}))
		}
	}
	return monitors
}

// Scheduler returns a scheduler that ingests on the configured interval.
func (a *App) Scheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.Config{
		Ingester: a.Aggregator,
		Store:    a.Store,
		Health:   a.Health,
		Interval: a.Config.MonitorInterval,
	})
}

// Server returns the HTTP API bound to the configured address.
func (a *App) Server() *server.Server {
	return server.New(server.Config{
		Addr:   a.Config.HTTPAddr,
		Trends: a.Aggregator,
		Health: a.Health,
	})
}

// Close closes all resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

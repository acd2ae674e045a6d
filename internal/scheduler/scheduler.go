package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/abdulachik/trendscout/internal/monitor"
)

// Health component names.
const (
	ComponentIngest = "ingest"
	ComponentStore  = "store"
)

// DefaultInterval is used when no monitor interval is configured.
const DefaultInterval = 30 * time.Minute

// Ingester runs one aggregation cycle.
type Ingester interface {
	FetchAndStore(ctx context.Context) (*monitor.IngestResult, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Scheduler runs trend ingestion on a fixed interval.
type Scheduler struct {
	ingester Ingester
	store    Pinger
	health   *Health
	interval time.Duration
}

// Config holds scheduler configuration.
type Config struct {
	Ingester Ingester
	Store    Pinger
	Health   *Health
	Interval time.Duration
}

// New creates a new scheduler.
func New(cfg Config) *Scheduler {
	health := cfg.Health
	if health == nil {
		health = NewHealth()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Scheduler{
		ingester: cfg.Ingester,
		store:    cfg.Store,
		health:   health,
		interval: interval,
	}
}

// Run starts the scheduler main loop. It runs one cycle immediately and
// returns when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("starting scheduler", "monitor_interval", s.interval)

	s.checkStore(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.checkStore(ctx)
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single ingest cycle and records its health.
func (s *Scheduler) RunOnce(ctx context.Context) *monitor.IngestResult {
	slog.Debug("running ingest cycle")

	result, err := s.ingester.FetchAndStore(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.health.SetUnhealthy(ComponentIngest, err)
		slog.Error("ingest cycle failed", "error", err)
		return nil
	}

	if result.RateLimited {
		s.health.SetHealthy(ComponentIngest, "rate limited")
		slog.Warn("ingest cycle rate limited", "today", len(result.Today))
		return result
	}

	s.health.SetHealthy(ComponentIngest, "fetched trends")
	slog.Info("ingest cycle complete",
		"new_trends", len(result.New),
		"updated", result.Updated,
		"fuzzy", result.Fuzzy,
	)
	return result
}

func (s *Scheduler) checkStore(ctx context.Context) {
	if s.store == nil {
		return
	}

	if err := s.store.PingContext(ctx); err != nil {
		s.health.SetUnhealthy(ComponentStore, err)
		slog.Error("store unreachable", "error", err)
		return
	}
	s.health.SetHealthy(ComponentStore, "connected")
}

// Health returns the health tracker.
func (s *Scheduler) Health() *Health {
	return s.health
}

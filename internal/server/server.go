// Package server exposes stored trends and dedup checks over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/abdulachik/trendscout/internal/db"
	"github.com/abdulachik/trendscout/internal/dedup"
	"github.com/abdulachik/trendscout/internal/scheduler"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// DefaultAddr is used when no listen address is configured.
const DefaultAddr = ":8080"

const shutdownTimeout = 10 * time.Second

// TrendService is the read and hand-off surface the API serves.
type TrendService interface {
	Today(ctx context.Context) ([]*db.Trend, error)
	Check(ctx context.Context, name string) (dedup.Match, bool, error)
	Pending(ctx context.Context, limit int) ([]*db.Trend, error)
	Ack(ctx context.Context, ids []int64) (int64, error)
}

// Server is the HTTP API.
type Server struct {
	echo   *echo.Echo
	addr   string
	trends TrendService
	health *scheduler.Health
}

// Config holds server configuration.
type Config struct {
	Addr   string
	Trends TrendService
	Health *scheduler.Health
}

// New creates a server and registers its routes.
func New(cfg Config) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	health := cfg.Health
	if health == nil {
		health = scheduler.NewHealth()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/health" || path == "/metrics"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				slog.Info("request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		addr:   addr,
		trends: cfg.Trends,
		health: health,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api/trends")
	api.GET("", s.handleToday)
	api.GET("/check", s.handleCheck)
	api.GET("/pending", s.handlePending)
	api.POST("/pending/ack", s.handleAck)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting HTTP server", "address", s.addr)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abdulachik/trendscout/internal/db"
	"github.com/labstack/echo/v4"
)

const (
	defaultPendingLimit = 50
	maxPendingLimit     = 500
)

type trendResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	PostCount     string    `json:"post_count"`
	TrendingSince string    `json:"trending_since"`
	Notified      bool      `json:"notified"`
	CreatedAt     time.Time `json:"created_at"`
	ObservedAt    time.Time `json:"observed_at"`
}

type trendsResponse struct {
	Trends []trendResponse `json:"trends"`
	Count  int             `json:"count"`
}

type checkResponse struct {
	Match bool    `json:"match"`
	ID    *int64  `json:"id"`
	Name  string  `json:"name,omitempty"`
	Score float64 `json:"score"`
	Exact bool    `json:"exact"`
}

type ackRequest struct {
	IDs []int64 `json:"ids"`
}

type ackResponse struct {
	Acknowledged int64 `json:"acknowledged"`
}

func toTrendsResponse(trends []*db.Trend) trendsResponse {
	resp := trendsResponse{
		Trends: make([]trendResponse, 0, len(trends)),
		Count:  len(trends),
	}
	for _, t := range trends {
		resp.Trends = append(resp.Trends, trendResponse{
			ID:            t.ID,
			Name:          t.Name,
			Category:      t.Category,
			PostCount:     t.PostCount,
			TrendingSince: t.TrendingSince,
			Notified:      t.Notified,
			CreatedAt:     t.CreatedAt,
			ObservedAt:    t.ObservedAt,
		})
	}
	return resp
}

// handleHealth reports component health, 503 if any component is unhealthy.
func (s *Server) handleHealth(c echo.Context) error {
	report := s.health.Report()

	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, report)
}

func (s *Server) handleToday(c echo.Context) error {
	trends, err := s.trends.Today(c.Request().Context())
	if err != nil {
		slog.Error("failed to list today's trends", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list trends")
	}
	return c.JSON(http.StatusOK, toTrendsResponse(trends))
}

func (s *Server) handleCheck(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	match, ok, err := s.trends.Check(c.Request().Context(), name)
	if err != nil {
		slog.Error("failed to check trend", "name", name, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to check trend")
	}

	if !ok {
		return c.JSON(http.StatusOK, checkResponse{})
	}

	id := match.Record.ID
	return c.JSON(http.StatusOK, checkResponse{
		Match: true,
		ID:    &id,
		Name:  match.Record.Name,
		Score: match.Score,
		Exact: match.Exact,
	})
}

func (s *Server) handlePending(c echo.Context) error {
	limit := defaultPendingLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxPendingLimit)
	}

	trends, err := s.trends.Pending(c.Request().Context(), limit)
	if err != nil {
		slog.Error("failed to list pending trends", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list pending trends")
	}
	return c.JSON(http.StatusOK, toTrendsResponse(trends))
}

func (s *Server) handleAck(c echo.Context) error {
	var req ackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids are required")
	}

	n, err := s.trends.Ack(c.Request().Context(), req.IDs)
	if err != nil {
		slog.Error("failed to acknowledge trends", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to acknowledge trends")
	}

	slog.Info("trends acknowledged", "requested", len(req.IDs), "changed", n)
	return c.JSON(http.StatusOK, ackResponse{Acknowledged: n})
}

package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	xDefaultBaseURL = "https://api.x.com"
	xTrendsPath     = "/2/users/personalized_trends"
)

// XMonitor fetches personalized trends from the X API.
type XMonitor struct {
	client      *retryablehttp.Client
	baseURL     string
	bearerToken string
}

// XConfig holds configuration for the X monitor.
type XConfig struct {
	BaseURL     string
	BearerToken string
	Client      *retryablehttp.Client
}

// NewXMonitor creates a new X trends monitor.
func NewXMonitor(cfg XConfig) *XMonitor {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = xDefaultBaseURL
	}

	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(ClientConfig{RetryMax: 3})
	}

	return &XMonitor{
		client:      client,
		baseURL:     baseURL,
		bearerToken: cfg.BearerToken,
	}
}

// Name returns the monitor name.
func (x *XMonitor) Name() string {
	return "x"
}

// xTrend is one entry of the personalized trends response.
type xTrend struct {
	Category      string `json:"category"`
	PostCount     string `json:"post_count"`
	TrendName     string `json:"trend_name"`
	TrendingSince string `json:"trending_since"`
}

type xTrendsResponse struct {
	Data   []xTrend `json:"data"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// FetchTrends retrieves the authenticated user's personalized trends.
// A 429 response yields ErrRateLimited.
func (x *XMonitor) FetchTrends(ctx context.Context) ([]Trend, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, x.baseURL+xTrendsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+x.bearerToken)

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("X API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload xTrendsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode trends: %w", err)
	}

	if len(payload.Data) == 0 && len(payload.Errors) > 0 {
		e := payload.Errors[0]
		return nil, fmt.Errorf("X API error: %s: %s", e.Title, e.Detail)
	}

	trends := make([]Trend, 0, len(payload.Data))
	for _, t := range payload.Data {
		trends = append(trends, Trend{
			Source:        x.Name(),
			Name:          t.TrendName,
			Category:      t.Category,
			PostCount:     t.PostCount,
			TrendingSince: t.TrendingSince,
		})
	}

	slog.Debug("fetched X trends", "count", len(trends))
	return trends, nil
}

package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrRateLimited is returned by a monitor whose source rejected the request
// with HTTP 429.
var ErrRateLimited = errors.New("rate limited")

// Trend represents a trend observed from any source.
type Trend struct {
	Source        string
	Name          string
	Category      string
	PostCount     string
	TrendingSince string
}

// Monitor is the interface for trend monitoring sources.
type Monitor interface {
	// Name returns the name of this monitor source.
	Name() string

	// FetchTrends retrieves current trends from the source.
	FetchTrends(ctx context.Context) ([]Trend, error)
}

// ClientConfig configures the shared retrying HTTP client.
type ClientConfig struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// NewHTTPClient builds the retrying client used by every monitor.
//
// 429 responses are not retried: sources report them as ErrRateLimited and
// the aggregator falls back to stored trends. Once retries run out the last
// response is passed through so callers can report its status.
func NewHTTPClient(cfg ClientConfig) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		client.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		client.RetryWaitMax = cfg.RetryWaitMax
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.HTTPClient.Timeout = timeout
	client.Logger = slog.Default()

	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return client
}

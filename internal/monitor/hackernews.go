package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
)

const (
	hnBaseURL     = "https://hacker-news.firebaseio.com/v0"
	hnTopStories  = "/topstories.json"
	hnItem        = "/item/%d.json"
	hnDefaultMax  = 30
	hnConcurrency = 8
	hnCategory    = "Technology"
)

// HackerNewsMonitor reports Hacker News front-page stories as trends.
type HackerNewsMonitor struct {
	client     *retryablehttp.Client
	baseURL    string
	maxStories int
	now        func() time.Time
}

// HackerNewsConfig holds configuration for the HN monitor.
type HackerNewsConfig struct {
	BaseURL    string
	MaxStories int
	Client     *retryablehttp.Client
}

// NewHackerNewsMonitor creates a new Hacker News monitor.
func NewHackerNewsMonitor(cfg HackerNewsConfig) *HackerNewsMonitor {
	maxStories := cfg.MaxStories
	if maxStories <= 0 {
		maxStories = hnDefaultMax
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = hnBaseURL
	}

	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(ClientConfig{RetryMax: 3})
	}

	return &HackerNewsMonitor{
		client:     client,
		baseURL:    baseURL,
		maxStories: maxStories,
		now:        time.Now,
	}
}

// Name returns the monitor name.
func (h *HackerNewsMonitor) Name() string {
	return "hackernews"
}

// hnStory represents a Hacker News story.
type hnStory struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
	Time  int64  `json:"time"`
	Type  string `json:"type"`
}

// FetchTrends retrieves top stories from Hacker News.
func (h *HackerNewsMonitor) FetchTrends(ctx context.Context) ([]Trend, error) {
	var ids []int
	if err := h.getJSON(ctx, h.baseURL+hnTopStories, &ids); err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}

	if len(ids) > h.maxStories {
		ids = ids[:h.maxStories]
	}

	stories := make([]*hnStory, len(ids))
	var failed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hnConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			var story hnStory
			if err := h.getJSON(gctx, fmt.Sprintf(h.baseURL+hnItem, id), &story); err != nil {
				if errors.Is(err, ErrRateLimited) {
					return err
				}
				failed.Add(1)
				return nil
			}
			stories[i] = &story
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if n := failed.Load(); n > 0 {
		slog.Warn("some HN stories failed to fetch", "errors", n)
	}

	trends := make([]Trend, 0, len(stories))
	for _, story := range stories {
		if story == nil || story.Type != "story" || story.Title == "" {
			continue
		}

		trends = append(trends, Trend{
			Source:        h.Name(),
			Name:          story.Title,
			Category:      hnCategory,
			PostCount:     fmt.Sprintf("%d points", story.Score),
			TrendingSince: trendingSince(h.now(), time.Unix(story.Time, 0)),
		})
	}

	slog.Debug("fetched HN trends", "count", len(trends))
	return trends, nil
}

func (h *HackerNewsMonitor) getJSON(ctx context.Context, url string, v any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HN API returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// trendingSince renders the age of a story the way X labels trends.
func trendingSince(now, posted time.Time) string {
	age := now.Sub(posted)
	switch {
	case age < time.Hour:
		return "Trending now"
	case age < 2*time.Hour:
		return "1 hour ago"
	case age < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(age.Hours()))
	case age < 48*time.Hour:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}
}

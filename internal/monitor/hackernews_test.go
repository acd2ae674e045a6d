package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHackerNewsMonitor(t *testing.T) {
	t.Run("uses default max stories", func(t *testing.T) {
		m := NewHackerNewsMonitor(HackerNewsConfig{})
		assert.Equal(t, hnDefaultMax, m.maxStories)
		assert.Equal(t, hnBaseURL, m.baseURL)
	})

	t.Run("uses custom max stories", func(t *testing.T) {
		m := NewHackerNewsMonitor(HackerNewsConfig{MaxStories: 10})
		assert.Equal(t, 10, m.maxStories)
	})
}

func TestHackerNewsMonitor_Name(t *testing.T) {
	m := NewHackerNewsMonitor(HackerNewsConfig{})
	assert.Equal(t, "hackernews", m.Name())
}

func newHNServer(t *testing.T, ids []int, stories map[int]hnStory) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ids)
	})
	mux.HandleFunc("/item/{id}", func(w http.ResponseWriter, r *http.Request) {
		for id, story := range stories {
			if r.PathValue("id") == fmt.Sprintf("%d.json", id) {
				json.NewEncoder(w).Encode(story)
				return
			}
		}
		http.NotFound(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHackerNewsMonitor_FetchTrends(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	t.Run("fetches and parses stories", func(t *testing.T) {
		stories := map[int]hnStory{
			1: {ID: 1, Title: "Show HN: A tiny SQLite extension", Score: 100, Time: now.Add(-30 * time.Minute).Unix(), Type: "story"},
			2: {ID: 2, Title: "Go 1.26 released", Score: 200, Time: now.Add(-5 * time.Hour).Unix(), Type: "story"},
			3: {ID: 3, Title: "Hiring thread", Score: 50, Time: now.Add(-3 * 24 * time.Hour).Unix(), Type: "job"},
		}
		server := newHNServer(t, []int{1, 2, 3}, stories)

		m := NewHackerNewsMonitor(HackerNewsConfig{
			BaseURL: server.URL,
			Client:  NewHTTPClient(testClientConfig()),
		})
		m.now = func() time.Time { return now }

		trends, err := m.FetchTrends(context.Background())
		require.NoError(t, err)
		require.Len(t, trends, 2)

		assert.Equal(t, Trend{
			Source:        "hackernews",
			Name:          "Show HN: A tiny SQLite extension",
			Category:      "Technology",
			PostCount:     "100 points",
			TrendingSince: "Trending now",
		}, trends[0])
		assert.Equal(t, "Go 1.26 released", trends[1].Name)
		assert.Equal(t, "5 hours ago", trends[1].TrendingSince)
	})

	t.Run("respects max stories", func(t *testing.T) {
		stories := map[int]hnStory{
			1: {ID: 1, Title: "First", Type: "story", Time: now.Unix()},
			2: {ID: 2, Title: "Second", Type: "story", Time: now.Unix()},
			3: {ID: 3, Title: "Third", Type: "story", Time: now.Unix()},
		}
		server := newHNServer(t, []int{1, 2, 3}, stories)

		m := NewHackerNewsMonitor(HackerNewsConfig{
			BaseURL:    server.URL,
			MaxStories: 2,
			Client:     NewHTTPClient(testClientConfig()),
		})

		trends, err := m.FetchTrends(context.Background())
		require.NoError(t, err)
		require.Len(t, trends, 2)
		assert.Equal(t, "First", trends[0].Name)
		assert.Equal(t, "Second", trends[1].Name)
	})

	t.Run("skips stories that fail to load", func(t *testing.T) {
		stories := map[int]hnStory{
			1: {ID: 1, Title: "Present", Type: "story", Time: now.Unix()},
		}
		server := newHNServer(t, []int{1, 404}, stories)

		m := NewHackerNewsMonitor(HackerNewsConfig{
			BaseURL: server.URL,
			Client:  NewHTTPClient(testClientConfig()),
		})

		trends, err := m.FetchTrends(context.Background())
		require.NoError(t, err)
		require.Len(t, trends, 1)
		assert.Equal(t, "Present", trends[0].Name)
	})

	t.Run("top stories rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		m := NewHackerNewsMonitor(HackerNewsConfig{
			BaseURL: server.URL,
			Client:  NewHTTPClient(testClientConfig()),
		})

		_, err := m.FetchTrends(context.Background())
		assert.ErrorIs(t, err, ErrRateLimited)
	})
}

func TestTrendingSince(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		age  time.Duration
		want string
	}{
		{0, "Trending now"},
		{59 * time.Minute, "Trending now"},
		{90 * time.Minute, "1 hour ago"},
		{6 * time.Hour, "6 hours ago"},
		{23*time.Hour + 59*time.Minute, "23 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{72 * time.Hour, "3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, trendingSince(now, now.Add(-tt.age)))
		})
	}
}

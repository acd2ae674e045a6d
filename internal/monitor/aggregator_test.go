package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdulachik/trendscout/internal/db"
	"github.com/abdulachik/trendscout/internal/dedup"
	"github.com/abdulachik/trendscout/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockMonitor is a mock implementation of Monitor for testing.
type mockMonitor struct {
	name   string
	trends []Trend
	err    error
}

func (m *mockMonitor) Name() string {
	return m.name
}

func (m *mockMonitor) FetchTrends(ctx context.Context) ([]Trend, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.trends, nil
}

// clock is a settable time source.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()

	ctx := context.Background()
	store, err := db.NewStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Migrate(ctx))
	return store
}

func newTestAggregator(t *testing.T, store *db.Store, c *clock, monitors ...Monitor) *Aggregator {
	t.Helper()

	return NewAggregator(AggregatorConfig{
		Store:    store,
		Monitors: monitors,
		Filter:   NewFilter(FilterConfig{Categories: []string{"Gaming", "Finance"}}),
		Now:      c.Now,
	})
}

func TestNewAggregator(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Store: newTestStore(t)})

	assert.NotNil(t, agg.filter)
	assert.Equal(t, DefaultWindow, agg.window)
	assert.NotNil(t, agg.now)
}

func TestAggregator_FetchAndStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := &clock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}

	require.GreaterOrEqual(t,
		dedup.Score("Goblintown Game Announced", "Goblintown Game Announcement"),
		dedup.Threshold,
	)

	mock := &mockMonitor{
		name: "x",
		trends: []Trend{
			{Source: "x", Name: "Goblintown Game Announcement", Category: "Gaming", PostCount: "992 posts", TrendingSince: "6 hours ago"},
			{Source: "x", Name: "Goblintown Game Announced", Category: "Gaming", PostCount: "120 posts", TrendingSince: "Trending now"},
			{Source: "x", Name: "Tesla Bitcoin Holdings Steady", Category: "Finance", PostCount: "811 posts", TrendingSince: "2 hours ago"},
			{Source: "x", Name: "   ", Category: "Gaming"},
		},
	}
	agg := newTestAggregator(t, store, c, mock)

	t.Run("first fetch stores distinct trends", func(t *testing.T) {
		result, err := agg.FetchAndStore(ctx)
		require.NoError(t, err)

		assert.NotEmpty(t, result.RunID)
		assert.Equal(t, 4, result.Fetched)
		assert.Len(t, result.New, 2)
		assert.Equal(t, 1, result.Fuzzy)
		assert.Equal(t, 0, result.Updated)
		assert.False(t, result.RateLimited)

		require.Len(t, result.Observations, 3)
		assert.Equal(t, metrics.DecisionNew, result.Observations[0].Decision)
		assert.Equal(t, metrics.DecisionFuzzy, result.Observations[1].Decision)
		assert.Equal(t, "Goblintown Game Announcement", result.Observations[1].Record.Name)
		assert.Equal(t, "120 posts", result.Observations[1].Record.PostCount)
		assert.Equal(t, metrics.DecisionNew, result.Observations[2].Decision)

		count, err := store.CountTrends(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		assert.Len(t, result.Today, 2)
	})

	t.Run("repeat fetch updates instead of inserting", func(t *testing.T) {
		c.now = c.now.Add(time.Hour)
		mock.trends = []Trend{
			{Source: "x", Name: "GOBLINTOWN GAME ANNOUNCEMENT", Category: "Gaming", PostCount: "2,140 posts", TrendingSince: "7 hours ago"},
		}

		result, err := agg.FetchAndStore(ctx)
		require.NoError(t, err)

		assert.Empty(t, result.New)
		assert.Equal(t, 1, result.Updated)
		require.Len(t, result.Observations, 1)

		obs := result.Observations[0]
		assert.Equal(t, metrics.DecisionExact, obs.Decision)
		assert.Equal(t, 1.0, obs.Score)

		stored, err := store.GetTrend(ctx, obs.Record.ID)
		require.NoError(t, err)
		assert.Equal(t, "Goblintown Game Announcement", stored.Name)
		assert.Equal(t, "2,140 posts", stored.PostCount)
		assert.Equal(t, "7 hours ago", stored.TrendingSince)
		assert.True(t, stored.ObservedAt.Equal(c.now))

		count, err := store.CountTrends(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("ingest runs are recorded", func(t *testing.T) {
		run, err := store.GetLatestIngestRun(ctx)
		require.NoError(t, err)

		assert.True(t, run.FinishedAt.Valid)
		assert.Equal(t, int64(1), run.Fetched)
		assert.Equal(t, int64(1), run.UpdatedCount)
		assert.False(t, run.RateLimited)
		assert.False(t, run.Error.Valid)
	})
}

func TestAggregator_FetchAndStore_Window(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := &clock{now: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)}

	mock := &mockMonitor{
		name:   "x",
		trends: []Trend{{Source: "x", Name: "Goblintown Game Announcement", Category: "Gaming"}},
	}
	agg := newTestAggregator(t, store, c, mock)

	_, err := agg.FetchAndStore(ctx)
	require.NoError(t, err)

	c.now = c.now.Add(8 * 24 * time.Hour)

	t.Run("fuzzy matches ignore trends outside the window", func(t *testing.T) {
		mock.trends = []Trend{{Source: "x", Name: "Goblintown Game Announced", Category: "Gaming"}}

		result, err := agg.FetchAndStore(ctx)
		require.NoError(t, err)
		assert.Len(t, result.New, 1)
		assert.Equal(t, 0, result.Fuzzy)
	})

	t.Run("exact matches are not limited to the window", func(t *testing.T) {
		mock.trends = []Trend{{Source: "x", Name: "goblintown game announcement", Category: "Gaming"}}

		result, err := agg.FetchAndStore(ctx)
		require.NoError(t, err)
		assert.Empty(t, result.New)
		assert.Equal(t, 1, result.Updated)
	})

	count, err := store.CountTrends(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAggregator_FetchAndStore_RateLimited(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := &clock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}

	mock := &mockMonitor{
		name: "x",
		trends: []Trend{
			{Source: "x", Name: "Roblox Outage", Category: "Gaming"},
			{Source: "x", Name: "Premier League Derby", Category: "Sports"},
		},
	}
	agg := newTestAggregator(t, store, c, mock)

	_, err := agg.FetchAndStore(ctx)
	require.NoError(t, err)

	c.now = c.now.Add(30 * time.Minute)
	mock.err = ErrRateLimited

	result, err := agg.FetchAndStore(ctx)
	require.NoError(t, err)

	assert.True(t, result.RateLimited)
	assert.Empty(t, result.New)
	require.Len(t, result.Today, 1)
	assert.Equal(t, "Roblox Outage", result.Today[0].Name)

	run, err := store.GetLatestIngestRun(ctx)
	require.NoError(t, err)
	assert.True(t, run.RateLimited)

	t.Run("yesterday's trends are not served", func(t *testing.T) {
		c.now = c.now.Add(24 * time.Hour)

		result, err := agg.FetchAndStore(ctx)
		require.NoError(t, err)
		assert.True(t, result.RateLimited)
		assert.Empty(t, result.Today)
	})
}

func TestAggregator_FetchAndStore_SourceFailures(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}

	t.Run("one failing source does not stop the others", func(t *testing.T) {
		store := newTestStore(t)
		agg := newTestAggregator(t, store, c,
			&mockMonitor{name: "x", err: errors.New("connection refused")},
			&mockMonitor{name: "hackernews", trends: []Trend{{Source: "hackernews", Name: "Go 1.26 released", Category: "Technology"}}},
		)

		result, err := agg.FetchAndStore(ctx)
		require.NoError(t, err)
		assert.Len(t, result.New, 1)
		assert.False(t, result.RateLimited)
	})

	t.Run("all sources failing is an error", func(t *testing.T) {
		store := newTestStore(t)
		agg := newTestAggregator(t, store, c,
			&mockMonitor{name: "x", err: errors.New("connection refused")},
			&mockMonitor{name: "hackernews", err: errors.New("status 500")},
		)

		_, err := agg.FetchAndStore(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all trend sources failed")
		assert.Contains(t, err.Error(), "connection refused")

		run, err := store.GetLatestIngestRun(ctx)
		require.NoError(t, err)
		assert.True(t, run.Error.Valid)
	})

	t.Run("rate limit wins when every source failed", func(t *testing.T) {
		store := newTestStore(t)
		agg := newTestAggregator(t, store, c,
			&mockMonitor{name: "x", err: ErrRateLimited},
			&mockMonitor{name: "hackernews", err: errors.New("status 500")},
		)

		result, err := agg.FetchAndStore(ctx)
		require.NoError(t, err)
		assert.True(t, result.RateLimited)
	})
}

func TestAggregator_Check(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := &clock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}

	agg := newTestAggregator(t, store, c, &mockMonitor{
		name:   "x",
		trends: []Trend{{Source: "x", Name: "Goblintown Game Announcement", Category: "Gaming"}},
	})
	_, err := agg.FetchAndStore(ctx)
	require.NoError(t, err)

	t.Run("exact", func(t *testing.T) {
		match, ok, err := agg.Check(ctx, "  goblintown game ANNOUNCEMENT ")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, match.Exact)
		assert.Equal(t, 1.0, match.Score)
	})

	t.Run("fuzzy", func(t *testing.T) {
		match, ok, err := agg.Check(ctx, "Goblintown Game Announced")
		require.NoError(t, err)
		require.True(t, ok)
		assert.False(t, match.Exact)
		assert.Equal(t, "Goblintown Game Announcement", match.Record.Name)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok, err := agg.Check(ctx, "Solana validator outage")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	count, err := store.CountTrends(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAggregator_PendingAndAck(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := &clock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}

	agg := newTestAggregator(t, store, c, &mockMonitor{
		name: "x",
		trends: []Trend{
			{Source: "x", Name: "Roblox Outage", Category: "Gaming"},
			{Source: "x", Name: "Fed Rate Decision", Category: "Finance"},
			{Source: "x", Name: "Premier League Derby", Category: "Sports"},
		},
	})
	_, err := agg.FetchAndStore(ctx)
	require.NoError(t, err)

	pending, err := agg.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Roblox Outage", pending[0].Name)
	assert.Equal(t, "Fed Rate Decision", pending[1].Name)

	n, err := agg.Ack(ctx, []int64{pending[0].ID, pending[1].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = agg.Ack(ctx, []int64{pending[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	pending, err = agg.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAggregator_Pending_SkipsFilteredRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	c := &clock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}

	mock := &mockMonitor{
		name: "x",
		trends: []Trend{
			{Source: "x", Name: "Premier League Derby", Category: "Sports"},
			{Source: "x", Name: "Wimbledon Final", Category: "Sports"},
			{Source: "x", Name: "Tour de France Stage", Category: "Sports"},
		},
	}
	agg := newTestAggregator(t, store, c, mock)
	agg.pageSize = 2

	_, err := agg.FetchAndStore(ctx)
	require.NoError(t, err)

	c.now = c.now.Add(time.Minute)
	mock.trends = []Trend{
		{Source: "x", Name: "Roblox Outage", Category: "Gaming"},
		{Source: "x", Name: "Fed Rate Decision", Category: "Finance"},
	}
	_, err = agg.FetchAndStore(ctx)
	require.NoError(t, err)

	t.Run("allowed trends behind filtered ones are returned", func(t *testing.T) {
		pending, err := agg.Pending(ctx, 3)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "Roblox Outage", pending[0].Name)
		assert.Equal(t, "Fed Rate Decision", pending[1].Name)
	})

	t.Run("result is truncated to limit", func(t *testing.T) {
		pending, err := agg.Pending(ctx, 1)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "Roblox Outage", pending[0].Name)
	})

	t.Run("non-positive limit returns nothing", func(t *testing.T) {
		pending, err := agg.Pending(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("acked trends leave the queue", func(t *testing.T) {
		pending, err := agg.Pending(ctx, 3)
		require.NoError(t, err)

		n, err := agg.Ack(ctx, []int64{pending[0].ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		pending, err = agg.Pending(ctx, 3)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "Fed Rate Decision", pending[0].Name)
	})
}

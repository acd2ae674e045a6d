package monitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abdulachik/trendscout/internal/db"
	"github.com/abdulachik/trendscout/internal/dedup"
	"github.com/abdulachik/trendscout/internal/metrics"
	"github.com/google/uuid"
)

// DefaultWindow is how far back stored trends are considered for fuzzy matching.
const DefaultWindow = 7 * 24 * time.Hour

// defaultPageSize is how many unnotified rows Pending reads per query.
const defaultPageSize = 200

// Aggregator combines trends from multiple monitors and records them,
// folding repeat observations into existing records.
type Aggregator struct {
	monitors []Monitor
	filter   *Filter
	store    *db.Store
	window   time.Duration
	now      func() time.Time
	pageSize int64
}

// AggregatorConfig holds aggregator configuration.
type AggregatorConfig struct {
	Store    *db.Store
	Monitors []Monitor
	Filter   *Filter
	Window   time.Duration
	Now      func() time.Time
}

// NewAggregator creates a new aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	filter := cfg.Filter
	if filter == nil {
		filter = NewFilter(FilterConfig{})
	}

	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Aggregator{
		monitors: cfg.Monitors,
		filter:   filter,
		store:    cfg.Store,
		window:   window,
		now:      now,
		pageSize: defaultPageSize,
	}
}

// Observation is the dedup decision for one fetched trend.
type Observation struct {
	Trend    Trend
	Decision string
	Record   *db.Trend
	Score    float64
}

// IngestResult summarizes one FetchAndStore call.
type IngestResult struct {
	RunID        string
	Fetched      int
	Observations []Observation
	New          []*db.Trend
	Updated      int
	Fuzzy        int
	RateLimited  bool

	// Today holds trends created since local midnight that pass the filter.
	Today []*db.Trend
}

// FetchAndStore fetches trends from all monitors and records them.
//
// A trend whose name matches a stored trend exactly (ignoring case) updates
// that record. Otherwise it is compared against the trailing window with
// dedup.FindDuplicate, and a match updates the matched record. Anything else
// is inserted and joins the window for the rest of the batch.
//
// When every monitor fails and at least one was rate limited, nothing is
// ingested and the result carries the stored trends for today.
func (a *Aggregator) FetchAndStore(ctx context.Context) (*IngestResult, error) {
	start := a.now()
	result := &IngestResult{RunID: uuid.NewString()}

	if err := a.store.CreateIngestRun(ctx, result.RunID, start); err != nil {
		return nil, fmt.Errorf("create ingest run: %w", err)
	}

	trends, err := a.fetchAll(ctx)
	result.Fetched = len(trends)

	switch {
	case errors.Is(err, ErrRateLimited):
		result.RateLimited = true
		slog.Warn("trend sources rate limited, serving stored trends", "run_id", result.RunID)
	case err != nil:
		a.finish(ctx, result, start, err)
		return nil, err
	default:
		if err := a.ingest(ctx, trends, result); err != nil {
			a.finish(ctx, result, start, err)
			return nil, err
		}
	}

	today, err := a.Today(ctx)
	if err != nil {
		err = fmt.Errorf("list today's trends: %w", err)
		a.finish(ctx, result, start, err)
		return nil, err
	}
	result.Today = today

	a.finish(ctx, result, start, nil)

	slog.Info("trend aggregation complete",
		"run_id", result.RunID,
		"total_fetched", result.Fetched,
		"new_stored", len(result.New),
		"updated", result.Updated,
		"fuzzy", result.Fuzzy,
		"rate_limited", result.RateLimited,
	)

	return result, nil
}

// fetchAll collects trends from every monitor. It fails only when every
// monitor failed, returning ErrRateLimited if any of them was rate limited.
func (a *Aggregator) fetchAll(ctx context.Context) ([]Trend, error) {
	var (
		allTrends   []Trend
		errs        []error
		rateLimited bool
	)

	for _, monitor := range a.monitors {
		slog.Debug("fetching from monitor", "source", monitor.Name())

		trends, err := monitor.FetchTrends(ctx)
		if err != nil {
			slog.Error("monitor fetch failed",
				"source", monitor.Name(),
				"error", err,
			)
			metrics.RecordSourceError(monitor.Name())
			if errors.Is(err, ErrRateLimited) {
				rateLimited = true
			}
			errs = append(errs, fmt.Errorf("%s: %w", monitor.Name(), err))
			continue
		}

		slog.Debug("fetched trends",
			"source", monitor.Name(),
			"count", len(trends),
		)

		allTrends = append(allTrends, trends...)
	}

	if len(a.monitors) > 0 && len(errs) == len(a.monitors) {
		if rateLimited {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("all trend sources failed: %w", errors.Join(errs...))
	}

	return allTrends, nil
}

func (a *Aggregator) ingest(ctx context.Context, trends []Trend, result *IngestResult) error {
	now := a.now()

	return a.store.InTx(ctx, func(q *db.Queries) error {
		stored, err := q.ListTrendsSince(ctx, now.Add(-a.window))
		if err != nil {
			return fmt.Errorf("load trend window: %w", err)
		}
		window := toRecords(stored)

		for _, trend := range trends {
			trend.Name = strings.TrimSpace(trend.Name)
			if trend.Name == "" {
				slog.Debug("skipping trend without a name", "source", trend.Source)
				continue
			}

			obs, err := a.observe(ctx, q, trend, &window, now)
			if err != nil {
				return fmt.Errorf("store trend %q: %w", trend.Name, err)
			}

			metrics.RecordDecision(obs.Decision)
			result.Observations = append(result.Observations, obs)

			switch obs.Decision {
			case metrics.DecisionExact:
				result.Updated++
			case metrics.DecisionFuzzy:
				result.Fuzzy++
			case metrics.DecisionNew:
				result.New = append(result.New, obs.Record)
			}
		}

		return nil
	})
}

// observe records one trend and reports which decision was taken.
func (a *Aggregator) observe(ctx context.Context, q *db.Queries, trend Trend, window *[]dedup.Record, now time.Time) (Observation, error) {
	obs := Observation{Trend: trend}

	existing, err := q.GetTrendByNameInsensitive(ctx, trend.Name)
	switch {
	case err == nil:
		obs.Decision = metrics.DecisionExact
		obs.Score = 1
		obs.Record = existing
		return obs, a.touch(ctx, q, existing.ID, trend, now)
	case !errors.Is(err, sql.ErrNoRows):
		return obs, fmt.Errorf("check existing: %w", err)
	}

	if match, ok := dedup.FindDuplicate(trend.Name, *window); ok {
		obs.Decision = metrics.DecisionFuzzy
		if match.Exact {
			obs.Decision = metrics.DecisionExact
		} else {
			metrics.DedupScore.Observe(match.Score)
			slog.Info("fuzzy match found",
				"trend", trend.Name,
				"matches", match.Record.Name,
				"score", match.Score,
			)
		}
		obs.Score = match.Score

		if err := a.touch(ctx, q, match.Record.ID, trend, now); err != nil {
			return obs, err
		}
		obs.Record, err = q.GetTrend(ctx, match.Record.ID)
		return obs, err
	}

	created, err := q.CreateTrend(ctx, db.CreateTrendParams{
		Name:          trend.Name,
		Category:      trend.Category,
		PostCount:     trend.PostCount,
		TrendingSince: trend.TrendingSince,
		ObservedAt:    now,
	})
	if err != nil {
		return obs, fmt.Errorf("create trend: %w", err)
	}

	*window = append(*window, toRecord(created))
	obs.Decision = metrics.DecisionNew
	obs.Record = created
	return obs, nil
}

func (a *Aggregator) touch(ctx context.Context, q *db.Queries, id int64, trend Trend, now time.Time) error {
	err := q.UpdateTrendObservation(ctx, db.UpdateTrendObservationParams{
		ID:            id,
		PostCount:     trend.PostCount,
		TrendingSince: trend.TrendingSince,
		ObservedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("update trend: %w", err)
	}
	return nil
}

func (a *Aggregator) finish(ctx context.Context, result *IngestResult, start time.Time, runErr error) {
	status := metrics.StatusOK
	errText := sql.NullString{}
	switch {
	case runErr != nil:
		status = metrics.StatusError
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	case result.RateLimited:
		status = metrics.StatusRateLimited
	}

	finished := a.now()
	metrics.RecordIngest(status, finished.Sub(start).Seconds())

	err := a.store.FinishIngestRun(ctx, db.FinishIngestRunParams{
		ID:           result.RunID,
		FinishedAt:   finished,
		Fetched:      int64(result.Fetched),
		NewCount:     int64(len(result.New)),
		UpdatedCount: int64(result.Updated),
		FuzzyCount:   int64(result.Fuzzy),
		RateLimited:  result.RateLimited,
		Error:        errText,
	})
	if err != nil {
		slog.Warn("failed to record ingest run", "run_id", result.RunID, "error", err)
	}
}

// Window returns the stored trends eligible for fuzzy matching.
func (a *Aggregator) Window(ctx context.Context) ([]dedup.Record, error) {
	stored, err := a.store.ListTrendsSince(ctx, a.now().Add(-a.window))
	if err != nil {
		return nil, err
	}
	return toRecords(stored), nil
}

// Check runs deduplication for name against the current window without
// storing anything.
func (a *Aggregator) Check(ctx context.Context, name string) (dedup.Match, bool, error) {
	window, err := a.Window(ctx)
	if err != nil {
		return dedup.Match{}, false, fmt.Errorf("load trend window: %w", err)
	}

	match, ok := dedup.FindDuplicate(name, window)
	return match, ok, nil
}

// Today returns trends created since local midnight that pass the filter,
// newest first.
func (a *Aggregator) Today(ctx context.Context) ([]*db.Trend, error) {
	now := a.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	trends, err := a.store.ListTrendsCreatedSince(ctx, midnight)
	if err != nil {
		return nil, err
	}
	return a.filter.FilterTrends(trends), nil
}

// Pending returns up to limit unnotified trends that pass the filter, oldest
// first. Filtered-out rows are skipped, so they never hide allowed trends
// queued behind them.
func (a *Aggregator) Pending(ctx context.Context, limit int) ([]*db.Trend, error) {
	if limit <= 0 {
		return []*db.Trend{}, nil
	}

	result := make([]*db.Trend, 0, limit)
	for offset := int64(0); len(result) < limit; offset += a.pageSize {
		page, err := a.store.ListUnnotifiedTrends(ctx, db.ListUnnotifiedTrendsParams{
			Limit:  a.pageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}

		result = append(result, a.filter.FilterTrends(page)...)
		if int64(len(page)) < a.pageSize {
			break
		}
	}

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Ack marks trends as handed to a notifier and returns how many changed.
func (a *Aggregator) Ack(ctx context.Context, ids []int64) (int64, error) {
	return a.store.MarkTrendsNotified(ctx, ids)
}

func toRecord(t *db.Trend) dedup.Record {
	return dedup.Record{ID: t.ID, Name: t.Name, ObservedAt: t.ObservedAt}
}

func toRecords(trends []*db.Trend) []dedup.Record {
	records := make([]dedup.Record, len(trends))
	for i, t := range trends {
		records[i] = toRecord(t)
	}
	return records
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// timeLayout matches SQLite's CURRENT_TIMESTAMP so stored values compare
// correctly as text.
const timeLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the typed queries over a connection or transaction.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries that runs inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const trendColumns = `id, name, category, post_count, trending_since, notified, created_at, observed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrend(row scanner) (*Trend, error) {
	var t Trend
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Category,
		&t.PostCount,
		&t.TrendingSince,
		&t.Notified,
		&t.CreatedAt,
		&t.ObservedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *Queries) listTrends(ctx context.Context, query string, args ...any) ([]*Trend, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Trend
	for rows.Next() {
		t, err := scanTrend(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateTrendParams holds the fields of a new trend.
type CreateTrendParams struct {
	Name          string
	Category      string
	PostCount     string
	TrendingSince string
	ObservedAt    time.Time
}

const createTrend = `INSERT INTO trends (name, category, post_count, trending_since, created_at, observed_at)
VALUES (?, ?, ?, ?, ?, ?)`

// CreateTrend inserts a trend. CreatedAt and ObservedAt both take ObservedAt.
func (q *Queries) CreateTrend(ctx context.Context, arg CreateTrendParams) (*Trend, error) {
	ts := formatTime(arg.ObservedAt)
	res, err := q.db.ExecContext(ctx, createTrend,
		arg.Name,
		arg.Category,
		arg.PostCount,
		arg.TrendingSince,
		ts,
		ts,
	)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return q.GetTrend(ctx, id)
}

const getTrendByNameInsensitive = `SELECT ` + trendColumns + `
FROM trends
WHERE name = ? COLLATE NOCASE
ORDER BY id
LIMIT 1`

// GetTrendByNameInsensitive returns the oldest trend whose name equals name,
// ignoring ASCII case. It returns sql.ErrNoRows if none exists.
func (q *Queries) GetTrendByNameInsensitive(ctx context.Context, name string) (*Trend, error) {
	row := q.db.QueryRowContext(ctx, getTrendByNameInsensitive, name)
	return scanTrend(row)
}

// GetTrend returns a trend by ID.
func (q *Queries) GetTrend(ctx context.Context, id int64) (*Trend, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+trendColumns+` FROM trends WHERE id = ?`, id)
	return scanTrend(row)
}

// UpdateTrendObservationParams holds the mutable fields refreshed when a
// trend is seen again.
type UpdateTrendObservationParams struct {
	ID            int64
	PostCount     string
	TrendingSince string
	ObservedAt    time.Time
}

const updateTrendObservation = `UPDATE trends
SET post_count = ?, trending_since = ?, observed_at = ?
WHERE id = ?`

// UpdateTrendObservation refreshes a re-observed trend.
func (q *Queries) UpdateTrendObservation(ctx context.Context, arg UpdateTrendObservationParams) error {
	_, err := q.db.ExecContext(ctx, updateTrendObservation,
		arg.PostCount,
		arg.TrendingSince,
		formatTime(arg.ObservedAt),
		arg.ID,
	)
	return err
}

// ListTrendsSince returns trends created at or after since, oldest first.
// This is the comparison window for deduplication.
func (q *Queries) ListTrendsSince(ctx context.Context, since time.Time) ([]*Trend, error) {
	return q.listTrends(ctx,
		`SELECT `+trendColumns+` FROM trends WHERE created_at >= ? ORDER BY created_at, id`,
		formatTime(since),
	)
}

// ListTrendsCreatedSince returns trends created at or after since, newest first.
func (q *Queries) ListTrendsCreatedSince(ctx context.Context, since time.Time) ([]*Trend, error) {
	return q.listTrends(ctx,
		`SELECT `+trendColumns+` FROM trends WHERE created_at >= ? ORDER BY created_at DESC, id DESC`,
		formatTime(since),
	)
}

// ListUnnotifiedTrendsParams pages through unnotified trends.
type ListUnnotifiedTrendsParams struct {
	Limit  int64
	Offset int64
}

// ListUnnotifiedTrends returns trends not yet handed to a notifier, oldest first.
func (q *Queries) ListUnnotifiedTrends(ctx context.Context, arg ListUnnotifiedTrendsParams) ([]*Trend, error) {
	return q.listTrends(ctx,
		`SELECT `+trendColumns+` FROM trends WHERE notified = 0 ORDER BY created_at, id LIMIT ? OFFSET ?`,
		arg.Limit,
		arg.Offset,
	)
}

// MarkTrendsNotified flags the given trends as notified and returns the
// number of rows changed.
func (q *Queries) MarkTrendsNotified(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := q.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE trends SET notified = 1 WHERE notified = 0 AND id IN (%s)`, placeholders),
		args...,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountTrends returns the number of stored trends.
func (q *Queries) CountTrends(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trends`).Scan(&count)
	return count, err
}

// CountTrendsByCategory returns trend counts grouped by category, largest first.
func (q *Queries) CountTrendsByCategory(ctx context.Context) ([]CategoryCount, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM trends GROUP BY category ORDER BY COUNT(*) DESC, category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateIngestRun opens a run record.
func (q *Queries) CreateIngestRun(ctx context.Context, id string, startedAt time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, started_at) VALUES (?, ?)`,
		id, formatTime(startedAt),
	)
	return err
}

// FinishIngestRunParams holds the outcome of a run.
type FinishIngestRunParams struct {
	ID           string
	FinishedAt   time.Time
	Fetched      int64
	NewCount     int64
	UpdatedCount int64
	FuzzyCount   int64
	RateLimited  bool
	Error        sql.NullString
}

const finishIngestRun = `UPDATE ingest_runs
SET finished_at = ?, fetched = ?, new_count = ?, updated_count = ?, fuzzy_count = ?, rate_limited = ?, error = ?
WHERE id = ?`

// FinishIngestRun closes a run record.
func (q *Queries) FinishIngestRun(ctx context.Context, arg FinishIngestRunParams) error {
	_, err := q.db.ExecContext(ctx, finishIngestRun,
		formatTime(arg.FinishedAt),
		arg.Fetched,
		arg.NewCount,
		arg.UpdatedCount,
		arg.FuzzyCount,
		arg.RateLimited,
		arg.Error,
		arg.ID,
	)
	return err
}

const getLatestIngestRun = `SELECT id, started_at, finished_at, fetched, new_count, updated_count, fuzzy_count, rate_limited, error
FROM ingest_runs
ORDER BY started_at DESC, rowid DESC
LIMIT 1`

// GetLatestIngestRun returns the most recent run, or sql.ErrNoRows.
func (q *Queries) GetLatestIngestRun(ctx context.Context) (*IngestRun, error) {
	var r IngestRun
	err := q.db.QueryRowContext(ctx, getLatestIngestRun).Scan(
		&r.ID,
		&r.StartedAt,
		&r.FinishedAt,
		&r.Fetched,
		&r.NewCount,
		&r.UpdatedCount,
		&r.FuzzyCount,
		&r.RateLimited,
		&r.Error,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

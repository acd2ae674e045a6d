package db

import (
	"database/sql"
	"time"
)

// Trend is a stored trend observation.
type Trend struct {
	ID            int64
	Name          string
	Category      string
	PostCount     string
	TrendingSince string
	Notified      bool
	CreatedAt     time.Time
	ObservedAt    time.Time
}

// IngestRun records one aggregation cycle.
type IngestRun struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Fetched      int64
	NewCount     int64
	UpdatedCount int64
	FuzzyCount   int64
	RateLimited  bool
	Error        sql.NullString
}

// CategoryCount is a row of CountTrendsByCategory.
type CategoryCount struct {
	Category string
	Count    int64
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdulachik/trendscout/internal/db"
	"github.com/abdulachik/trendscout/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_SetHealthy(t *testing.T) {
	h := NewHealth()

	h.SetHealthy("test", "all good")

	status := h.GetStatus("test")
	assert.True(t, status.Healthy)
	assert.Equal(t, "all good", status.Message)
	assert.Empty(t, status.LastError)
	assert.WithinDuration(t, time.Now(), status.LastCheck, time.Second)
	assert.WithinDuration(t, time.Now(), status.LastSuccess, time.Second)
}

func TestHealth_SetUnhealthy(t *testing.T) {
	h := NewHealth()

	err := assert.AnError
	h.SetUnhealthy("test", err)

	status := h.GetStatus("test")
	assert.False(t, status.Healthy)
	assert.Equal(t, err.Error(), status.LastError)
	assert.Equal(t, err.Error(), status.Message)
	assert.WithinDuration(t, time.Now(), status.LastCheck, time.Second)
	assert.True(t, status.LastSuccess.IsZero())
}

func TestHealth_RecoveryKeepsLastSuccess(t *testing.T) {
	h := NewHealth()
	fixed := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	h.SetHealthy("test", "ok")
	h.now = func() time.Time { return fixed.Add(time.Minute) }
	h.SetUnhealthy("test", assert.AnError)

	status := h.GetStatus("test")
	assert.Equal(t, fixed, status.LastSuccess)
	assert.Equal(t, fixed.Add(time.Minute), status.LastCheck)
}

func TestHealth_GetStatus_NotFound(t *testing.T) {
	h := NewHealth()

	status := h.GetStatus("nonexistent")
	assert.Nil(t, status)
}

func TestHealth_Report(t *testing.T) {
	h := NewHealth()

	h.SetHealthy("comp1", "ok")
	h.SetHealthy("comp2", "ok")
	h.SetUnhealthy("comp3", assert.AnError)

	report := h.Report()
	assert.False(t, report.Healthy)
	assert.Len(t, report.Components, 3)
	assert.True(t, report.Components["comp1"].Healthy)
	assert.True(t, report.Components["comp2"].Healthy)
	assert.False(t, report.Components["comp3"].Healthy)

	report.Components["comp1"].Healthy = false
	assert.True(t, h.GetStatus("comp1").Healthy)

	assert.Equal(t, []string{"comp1", "comp2", "comp3"}, h.Components())
}

func TestHealth_Report_Overall(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		h := NewHealth()
		h.SetHealthy("comp1", "ok")
		h.SetHealthy("comp2", "ok")

		assert.True(t, h.Report().Healthy)
	})

	t.Run("one unhealthy", func(t *testing.T) {
		h := NewHealth()
		h.SetHealthy("comp1", "ok")
		h.SetUnhealthy("comp2", assert.AnError)

		assert.False(t, h.Report().Healthy)
	})

	t.Run("recovers", func(t *testing.T) {
		h := NewHealth()
		h.SetUnhealthy("comp1", assert.AnError)
		h.SetHealthy("comp1", "ok")

		report := h.Report()
		assert.True(t, report.Healthy)
		assert.Empty(t, report.Components["comp1"].LastError)
	})

	t.Run("empty", func(t *testing.T) {
		h := NewHealth()
		report := h.Report()
		assert.True(t, report.Healthy)
		assert.Empty(t, report.Components)
	})
}

type fakeIngester struct {
	calls  atomic.Int32
	result *monitor.IngestResult
	err    error
}

func (f *fakeIngester) FetchAndStore(ctx context.Context) (*monitor.IngestResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakePinger struct {
	err error
}

func (f fakePinger) PingContext(ctx context.Context) error {
	return f.err
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{Ingester: &fakeIngester{}})

	assert.Equal(t, DefaultInterval, s.interval)
	assert.NotNil(t, s.Health())
}

func TestScheduler_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		ing := &fakeIngester{result: &monitor.IngestResult{New: []*db.Trend{{ID: 1}}}}
		s := New(Config{Ingester: ing})

		result := s.RunOnce(ctx)
		require.NotNil(t, result)
		assert.Len(t, result.New, 1)

		status := s.Health().GetStatus(ComponentIngest)
		require.NotNil(t, status)
		assert.True(t, status.Healthy)
		assert.Equal(t, "fetched trends", status.Message)
	})

	t.Run("rate limited stays healthy", func(t *testing.T) {
		s := New(Config{Ingester: &fakeIngester{result: &monitor.IngestResult{RateLimited: true}}})

		s.RunOnce(ctx)

		status := s.Health().GetStatus(ComponentIngest)
		require.NotNil(t, status)
		assert.True(t, status.Healthy)
		assert.Equal(t, "rate limited", status.Message)
	})

	t.Run("failure marks ingest unhealthy", func(t *testing.T) {
		s := New(Config{Ingester: &fakeIngester{err: errors.New("all trend sources failed")}})

		assert.Nil(t, s.RunOnce(ctx))

		status := s.Health().GetStatus(ComponentIngest)
		require.NotNil(t, status)
		assert.False(t, status.Healthy)
		assert.Equal(t, "all trend sources failed", status.LastError)
		assert.False(t, s.Health().Report().Healthy)
	})

	t.Run("cancellation is not a failure", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		s := New(Config{Ingester: &fakeIngester{err: context.Canceled}})
		assert.Nil(t, s.RunOnce(cancelled))
		assert.Nil(t, s.Health().GetStatus(ComponentIngest))
	})
}

func TestScheduler_Run(t *testing.T) {
	t.Run("runs immediately and on each tick", func(t *testing.T) {
		ing := &fakeIngester{result: &monitor.IngestResult{}}
		s := New(Config{
			Ingester: ing,
			Store:    fakePinger{},
			Interval: 10 * time.Millisecond,
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		require.Eventually(t, func() bool { return ing.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop")
		}

		assert.True(t, s.Health().GetStatus(ComponentStore).Healthy)
	})

	t.Run("unreachable store is reported", func(t *testing.T) {
		ing := &fakeIngester{result: &monitor.IngestResult{}}
		s := New(Config{
			Ingester: ing,
			Store:    fakePinger{err: errors.New("database is locked")},
			Interval: time.Hour,
		})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		require.Eventually(t, func() bool { return ing.calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
		cancel()
		<-done

		status := s.Health().GetStatus(ComponentStore)
		require.NotNil(t, status)
		assert.False(t, status.Healthy)
		assert.Equal(t, "database is locked", status.LastError)
	})
}

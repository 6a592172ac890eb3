package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScreener/internal/collector"
	"TrendScreener/internal/consensus"
	"TrendScreener/internal/metrics"
	"TrendScreener/internal/pipeline"
	"TrendScreener/internal/recorder"
	"TrendScreener/internal/screener"
	"TrendScreener/internal/signal"
)

var asOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return f.err
}

func newScheduler(t *testing.T, rec recorder.Recorder) (*Scheduler, *fakeSender) {
	t.Helper()
	src := collector.NewMockSource(400)
	src.Errs["DOWN"] = errors.New("feed down")
	runner := pipeline.NewRunner(
		pipeline.Config{Concurrency: 2, Benchmark: "SPY", Now: func() time.Time { return asOf }},
		src,
		screener.New(screener.Options{}),
		signal.NewEngine(context.Background(), nil, signal.Options{}),
		rec,
		nil,
	)
	s := NewScheduler(context.Background(), runner, consensus.New(0), rec, []string{"AAPL", "MSFT", "DOWN"}, 0)
	sender := &fakeSender{}
	s.Notifier = sender
	return s, sender
}

func openRecorder(t *testing.T) *recorder.SQLiteRecorder {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "screener.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })
	return rec
}

func TestRegister(t *testing.T) {
	s, _ := newScheduler(t, recorder.NewNoopRecorder())
	require.NoError(t, s.Register("0 30 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron"))
}

func TestRunNow(t *testing.T) {
	rec := openRecorder(t)
	s, sender := newScheduler(t, rec)
	reg := prometheus.NewRegistry()
	s.Metrics = metrics.NewMetrics(reg)
	s.Health = metrics.NewHealthStatus(false)

	rep, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Screened)
	assert.Equal(t, 1, rep.Failed)
	assert.Same(t, rep, s.LastReport())

	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], rep.RunID)
	assert.Contains(t, sender.msgs[0], "Failed: DOWN")
	eligible := 0
	for _, r := range rep.Records {
		if s.Consensus.Eligible(r) {
			eligible++
		}
	}
	assert.Equal(t, float64(eligible), testutil.ToFloat64(s.Metrics.Eligible))
}

func TestRunNow_RejectsOverlap(t *testing.T) {
	s, _ := newScheduler(t, recorder.NewNoopRecorder())
	s.running = true
	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunNow_Cancelled(t *testing.T) {
	s, sender := newScheduler(t, recorder.NewNoopRecorder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.RunNow(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.LastReport())
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "aborted")
}

func TestHandleCommand(t *testing.T) {
	rec := openRecorder(t)
	s, _ := newScheduler(t, rec)
	ctx := context.Background()

	assert.Contains(t, s.HandleCommand(ctx, "/status"), "No run yet")
	assert.Contains(t, s.HandleCommand(ctx, "/top"), "No symbol cleared")
	assert.Contains(t, s.HandleCommand(ctx, "/signal aapl"), "No signal stored for AAPL")

	rep, err := s.RunNow(ctx)
	require.NoError(t, err)

	top := s.HandleCommand(ctx, "/top")
	assert.Contains(t, top, "Top picks")
	if recs := s.Consensus.Rank(rep.Records, s.TopN); len(recs) > 0 {
		assert.Contains(t, top, "1. <b>"+recs[0].Symbol+"</b>")
	}
	assert.Contains(t, s.HandleCommand(ctx, "/signal aapl"), "<b>AAPL</b>")
	assert.Contains(t, s.HandleCommand(ctx, "/status"), "Screened: 2 | Insufficient: 0 | Failed: 1")
	assert.Contains(t, s.HandleCommand(ctx, "/check"), "consistent")
	assert.Equal(t, "Usage: /signal SYMBOL", s.HandleCommand(ctx, "/signal"))
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/top")
}

package recorder

import (
	"context"
	"time"

	"TrendScreener/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) UpsertScreeningRecord(context.Context, *model.ScreeningRecord) error { return nil }
func (n *NoopRecorder) UpsertSignal(context.Context, *model.Signal) error                   { return nil }
func (n *NoopRecorder) RecordRun(context.Context, *RunSummary) error                        { return nil }
func (n *NoopRecorder) LatestScreeningRecords(context.Context) ([]*model.ScreeningRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) ScreeningRecords(context.Context, time.Time) ([]*model.ScreeningRecord, error) {
	return nil, nil
}
func (n *NoopRecorder) LatestSignal(context.Context, string) (*model.Signal, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                              { return nil }

package recorder

import (
	"context"
	"time"

	"TrendScreener/internal/model"
)

// RunSummary records the outcome of one batch run.
type RunSummary struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Symbols      int
	Screened     int
	Insufficient int
	Failed       int
	UsingModel   bool
}

// Recorder is the result sink. Screening records and signals are keyed by
// (symbol, date); writing the same key again replaces the row.
type Recorder interface {
	UpsertScreeningRecord(ctx context.Context, rec *model.ScreeningRecord) error
	UpsertSignal(ctx context.Context, sig *model.Signal) error
	RecordRun(ctx context.Context, run *RunSummary) error

	// LatestScreeningRecords returns each symbol's most recent record, ordered by symbol.
	LatestScreeningRecords(ctx context.Context) ([]*model.ScreeningRecord, error)
	ScreeningRecords(ctx context.Context, date time.Time) ([]*model.ScreeningRecord, error)
	// LatestSignal returns nil, nil when the symbol has no stored signal.
	LatestSignal(ctx context.Context, symbol string) (*model.Signal, error)
	Close() error
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"TrendScreener/internal/calculator"
	"TrendScreener/internal/collector"
	"TrendScreener/internal/metrics"
	"TrendScreener/internal/model"
	"TrendScreener/internal/recorder"
	"TrendScreener/internal/screener"
	"TrendScreener/internal/signal"
)

const (
	defaultConcurrency = 4
	// enough for the 200-bar gate plus the 20-bar MA200 trend offset and a 252-bar year
	defaultHistoryDays = 300
)

// Outcome is the per-symbol result of a run.
type Outcome string

const (
	OutcomeScreened     Outcome = "screened"
	OutcomeInsufficient Outcome = "insufficient"
	OutcomeFailed       Outcome = "failed"
)

// SymbolResult is what happened to one symbol.
type SymbolResult struct {
	Symbol  string
	Outcome Outcome
	Err     error
	Record  *model.ScreeningRecord
	Signal  *model.Signal
}

// Report is returned once every worker has drained.
type Report struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	UsingModel   bool
	Screened     int
	Insufficient int
	Failed       int
	// Outcomes, Records and Signals follow the input symbol order.
	Outcomes []SymbolResult
	Records  []*model.ScreeningRecord
	Signals  []*model.Signal
}

// Summary converts the report for the run log.
func (r *Report) Summary() *recorder.RunSummary {
	return &recorder.RunSummary{
		RunID:        r.RunID,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Symbols:      len(r.Outcomes),
		Screened:     r.Screened,
		Insufficient: r.Insufficient,
		Failed:       r.Failed,
		UsingModel:   r.UsingModel,
	}
}

// Config controls the worker pool and history window.
type Config struct {
	Concurrency int
	Benchmark   string
	HistoryDays int
	// Now returns the as-of time; defaults to time.Now.
	Now func() time.Time
}

// Runner screens and signals a batch of symbols.
type Runner struct {
	cfg      Config
	source   collector.BarSource
	screener *screener.Engine
	signals  *signal.Engine
	sink     recorder.Recorder
	metrics  *metrics.Metrics
}

// NewRunner wires the collaborators. sink and m may be nil.
func NewRunner(cfg Config, source collector.BarSource, scr *screener.Engine, sig *signal.Engine, sink recorder.Recorder, m *metrics.Metrics) *Runner {
	if source == nil || scr == nil || sig == nil {
		panic("pipeline: source, screener and signal engine must not be nil")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = defaultHistoryDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = recorder.NewNoopRecorder()
	}
	return &Runner{cfg: cfg, source: source, screener: scr, signals: sig, sink: sink, metrics: m}
}

type job struct {
	idx    int
	symbol string
}

// Run processes symbols on a bounded pool. Per-symbol failures are reported
// in the Report; only cancellation of ctx makes Run return an error.
func (r *Runner) Run(ctx context.Context, symbols []string) (*Report, error) {
	rep := &Report{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now(),
		UsingModel: r.signals.UsingModel(),
		Outcomes:   make([]SymbolResult, len(symbols)),
	}
	asOf := r.cfg.Now()
	log.Info().Str("run_id", rep.RunID).
		Int("symbols", len(symbols)).
		Int("concurrency", r.cfg.Concurrency).
		Msg("run started")

	benchmark := r.fetchBenchmark(ctx, rep.RunID, asOf)

	jobs := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-jobs:
					if !ok {
						return
					}
					rep.Outcomes[j.idx] = r.process(ctx, j.symbol, asOf, benchmark)
				}
			}
		}()
	}

feed:
	for i, s := range symbols {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{idx: i, symbol: s}:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		log.Warn().Str("run_id", rep.RunID).Err(err).Msg("run cancelled, discarding results")
		return nil, err
	}

	for _, o := range rep.Outcomes {
		switch o.Outcome {
		case OutcomeScreened:
			rep.Screened++
			rep.Records = append(rep.Records, o.Record)
			rep.Signals = append(rep.Signals, o.Signal)
		case OutcomeInsufficient:
			rep.Insufficient++
		default:
			rep.Failed++
		}
		if r.metrics != nil {
			r.metrics.SymbolsTotal.WithLabelValues(string(o.Outcome)).Inc()
		}
	}
	rep.FinishedAt = time.Now()

	if err := r.sink.RecordRun(ctx, rep.Summary()); err != nil {
		log.Error().Str("run_id", rep.RunID).Err(err).Msg("record run failed")
	}
	if r.metrics != nil {
		r.metrics.RunDuration.Observe(rep.FinishedAt.Sub(rep.StartedAt).Seconds())
		r.metrics.LastRun.Set(float64(rep.FinishedAt.Unix()))
	}
	log.Info().Str("run_id", rep.RunID).
		Int("screened", rep.Screened).
		Int("insufficient", rep.Insufficient).
		Int("failed", rep.Failed).
		Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("run finished")
	return rep, nil
}

// fetchBenchmark returns nil when the benchmark is unconfigured or unavailable;
// relative strength then fails closed for every symbol.
func (r *Runner) fetchBenchmark(ctx context.Context, runID string, asOf time.Time) []model.Bar {
	if r.cfg.Benchmark == "" {
		return nil
	}
	bars, err := collector.History(ctx, r.source, r.cfg.Benchmark, asOf, r.cfg.HistoryDays)
	if err == nil {
		err = model.ValidateBars(bars)
	}
	if err != nil {
		log.Warn().Str("run_id", runID).Str("symbol", r.cfg.Benchmark).Err(err).Msg("benchmark unavailable")
		return nil
	}
	return bars
}

func (r *Runner) process(ctx context.Context, symbol string, asOf time.Time, benchmark []model.Bar) (res SymbolResult) {
	res.Symbol = symbol
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("symbol", symbol).Str("stack", string(debug.Stack())).Msgf("panic: %v", p)
			res = SymbolResult{Symbol: symbol, Outcome: OutcomeFailed, Err: fmt.Errorf("panic: %v", p)}
		}
		if r.metrics != nil {
			r.metrics.SymbolDuration.Observe(time.Since(start).Seconds())
		}
	}()

	rec, sig, err := r.evaluate(ctx, symbol, asOf, benchmark)
	switch {
	case errors.Is(err, calculator.ErrInsufficientData):
		log.Debug().Str("symbol", symbol).Err(err).Msg("insufficient history")
		res.Outcome, res.Err = OutcomeInsufficient, err
		return res
	case err != nil:
		log.Warn().Str("symbol", symbol).Err(err).Msg("symbol failed")
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	// nothing is written once the run is cancelled
	if err := ctx.Err(); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}
	if err := r.sink.UpsertScreeningRecord(ctx, rec); err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("store record: %w", err)
		return res
	}
	if err := r.sink.UpsertSignal(ctx, sig); err != nil {
		res.Outcome, res.Err = OutcomeFailed, fmt.Errorf("store signal: %w", err)
		return res
	}
	res.Outcome, res.Record, res.Signal = OutcomeScreened, rec, sig
	return res
}

func (r *Runner) evaluate(ctx context.Context, symbol string, asOf time.Time, benchmark []model.Bar) (*model.ScreeningRecord, *model.Signal, error) {
	bars, err := collector.History(ctx, r.source, symbol, asOf, r.cfg.HistoryDays)
	if err != nil {
		return nil, nil, err
	}
	rec, err := r.screener.Screen(symbol, bars, benchmark)
	if err != nil {
		return nil, nil, err
	}
	sig, err := r.signals.Generate(ctx, symbol, bars)
	if err != nil {
		return nil, nil, err
	}
	return rec, sig, nil
}

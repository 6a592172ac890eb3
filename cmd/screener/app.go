package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"

	"TrendScreener/internal/collector"
	"TrendScreener/internal/config"
	"TrendScreener/internal/consensus"
	"TrendScreener/internal/metrics"
	"TrendScreener/internal/pipeline"
	"TrendScreener/internal/recorder"
	"TrendScreener/internal/screener"
	signalengine "TrendScreener/internal/signal"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg       *config.Config
	source    collector.BarSource
	cache     *collector.CachedSource // nil without Redis
	recorder  recorder.Recorder
	sqlite    *recorder.SQLiteRecorder // nil when SQLite could not open
	screener  *screener.Engine
	signals   *signalengine.Engine
	consensus *consensus.Engine
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
	}
	a.metrics = metrics.NewMetrics(a.registry)

	switch cfg.DataSource.Provider {
	case "vstrader":
		a.source = collector.NewVsTraderSource(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.RateLimit)
	case "mock":
		a.source = collector.NewMockSource(cfg.Screening.HistoryDays + 100)
	case "yahoo":
		a.source = collector.NewYahooSource(cfg.Proxy, cfg.DataSource.RateLimit)
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource.Provider)
	}
	if cfg.Cache.RedisAddr != "" {
		a.cache = collector.NewCachedSource(a.source, cfg.Cache.RedisAddr, cfg.Cache.TTL)
		a.source = a.cache
	}
	log.Info().Str("source", a.source.Name()).Msg("data source ready")

	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		a.recorder = recorder.NewNoopRecorder()
	} else {
		a.sqlite = sr
		a.recorder = sr
	}

	a.screener = screener.New(screener.Options{
		RSLookback:   cfg.Screening.RSLookback,
		TrendOffset:  cfg.Screening.TrendOffset,
		RangeWindow:  cfg.Screening.RangeWindow,
		VolumePeriod: cfg.Screening.VolumePeriod,
	})

	var predictor signalengine.Predictor
	if cfg.Signal.ModelURL != "" {
		predictor = signalengine.NewHTTPPredictor(cfg.Signal.ModelURL, cfg.Signal.ModelTimeout)
	}
	a.signals = signalengine.NewEngine(ctx, predictor, signalengine.Options{
		ModelTimeout: cfg.Signal.ModelTimeout,
		Fallbacks:    a.metrics.ModelFallbacks,
	})
	a.consensus = consensus.New(cfg.Screening.MinPassed)
	return a, nil
}

func (a *app) runner() *pipeline.Runner {
	return pipeline.NewRunner(pipeline.Config{
		Concurrency: a.cfg.Workers.Concurrency,
		Benchmark:   a.cfg.Screening.Benchmark,
		HistoryDays: a.cfg.Screening.HistoryDays,
	}, a.source, a.screener, a.signals, a.recorder, a.metrics)
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}
	if err := a.recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
}

func (a *app) redisClient() *redis.Client {
	if a.cache == nil {
		return nil
	}
	return a.cache.Client
}

func (a *app) db() *sql.DB {
	if a.sqlite == nil {
		return nil
	}
	return a.sqlite.DB()
}

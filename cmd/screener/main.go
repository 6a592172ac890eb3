package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"TrendScreener/internal/collector"
	"TrendScreener/internal/config"
	"TrendScreener/internal/display"
	"TrendScreener/internal/logging"
	"TrendScreener/internal/metrics"
	"TrendScreener/internal/model"
	"TrendScreener/internal/notifier"
	"TrendScreener/internal/scheduler"
	"TrendScreener/internal/screener"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "screener",
		Short:         "TrendScreener - trend-template stock screening and signals",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "Configuration file path")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation: %w", err)
		}
		logging.Setup(cfg.Log.Level, cfg.Log.Format)
		return cfg, nil
	}

	rootCmd.AddCommand(newRunCmd(load))
	rootCmd.AddCommand(newScreenCmd(load))
	rootCmd.AddCommand(newSignalCmd(load))
	rootCmd.AddCommand(newRankCmd(load))
	rootCmd.AddCommand(newCheckCmd(load))
	return rootCmd
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

type loader func() (*config.Config, error)

// newRunCmd starts the daemon: cron schedule, chat polling and metrics server.
func newRunCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduled screener daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			health := metrics.NewHealthStatus(a.cache != nil)
			health.SetUsingModel(a.signals.UsingModel())
			rdb := a.redisClient()
			db := a.db()
			health.Check(ctx, rdb, db)
			health.StartLivenessChecker(ctx, rdb, db, 30*time.Second)

			srv := metrics.NewServer(cfg.Metrics.Addr, health, a.registry)
			srv.Start()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Stop(shutdownCtx)
			}()

			sched := scheduler.NewScheduler(ctx, a.runner(), a.consensus, a.recorder, cfg.DataSource.Symbols, cfg.Screening.TopN)
			sched.Metrics = a.metrics
			sched.Health = health

			var tn *notifier.TelegramNotifier
			if cfg.TelegramEnabled() {
				tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
				sched.Notifier = tn
			}

			if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn != nil {
				go tn.StartPolling(ctx, sched.HandleCommand)
				log.Info().Msg("telegram polling started")
			}

			if os.Getenv("RUN_ON_START") == "true" {
				log.Info().Msg("RUN_ON_START enabled, running now")
				go func() {
					if _, err := sched.RunNow(ctx); err != nil {
						log.Error().Err(err).Msg("startup run")
					}
				}()
			}

			log.Info().Str("cron", cfg.Schedule.DailyCron).Int("symbols", len(cfg.DataSource.Symbols)).
				Msg("TrendScreener is running. Press Ctrl+C to stop.")
			<-ctx.Done()
			log.Info().Msg("shutdown signal received, stopping")
			return nil
		},
	}
}

// newScreenCmd runs one batch and prints the ranking.
func newScreenCmd(load loader) *cobra.Command {
	var symbols string
	var showSignals bool

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Run one screening batch and print the ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			list := cfg.DataSource.Symbols
			if symbols != "" {
				list = strings.Split(strings.ToUpper(symbols), ",")
			}
			rep, err := a.runner().Run(ctx, list)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			display.Print(out, display.RunSummary(rep))
			display.Print(out, display.Recommendations(a.consensus.Rank(rep.Records, cfg.Screening.TopN)))
			if showSignals {
				display.Print(out, display.Signals(rep.Signals))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&symbols, "symbols", "", "Comma-separated symbols overriding the configured list")
	cmd.Flags().BoolVar(&showSignals, "signals", false, "Also print every signal")
	return cmd
}

// newSignalCmd screens and signals a single symbol.
func newSignalCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "signal [SYMBOL]",
		Short: "Compute the screening record and signal for one symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			symbol := strings.ToUpper(args[0])
			now := time.Now()
			bars, err := collector.History(ctx, a.source, symbol, now, cfg.Screening.HistoryDays)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			benchmark, err := collector.History(ctx, a.source, cfg.Screening.Benchmark, now, cfg.Screening.HistoryDays)
			if err != nil {
				log.Warn().Err(err).Str("benchmark", cfg.Screening.Benchmark).Msg("benchmark unavailable")
				benchmark = nil
			}
			if rec, err := a.screener.Screen(symbol, bars, benchmark); err == nil {
				display.Print(out, display.Criteria(rec))
			} else {
				log.Warn().Err(err).Str("symbol", symbol).Msg("screening skipped")
			}

			sig, err := a.signals.Generate(ctx, symbol, bars)
			if err != nil {
				return err
			}
			display.Print(out, display.Signals([]*model.Signal{sig}))
			return nil
		},
	}
}

// newRankCmd ranks the latest stored records without fetching.
func newRankCmd(load loader) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the latest stored screening records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.recorder.LatestScreeningRecords(cmd.Context())
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.Screening.TopN
			}
			display.Print(cmd.OutOrStdout(), display.Recommendations(a.consensus.Rank(records, limit)))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of picks (defaults to screening.top_n)")
	return cmd
}

// newCheckCmd recounts stored records and reports mismatches.
func newCheckCmd(load loader) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check stored screening records for count mismatches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var records []*model.ScreeningRecord
			if date != "" {
				day, err := time.Parse(model.DateLayout, date)
				if err != nil {
					return fmt.Errorf("parse --date: %w", err)
				}
				records, err = a.recorder.ScreeningRecords(cmd.Context(), day)
				if err != nil {
					return err
				}
			} else {
				records, err = a.recorder.LatestScreeningRecords(cmd.Context())
				if err != nil {
					return err
				}
			}
			found := screener.CheckConsistency(records)
			for _, f := range found {
				log.Warn().Str("symbol", f.Symbol).Int("stored", f.Stored).Int("recount", f.Recount).Msg("inconsistent record")
			}
			display.Print(cmd.OutOrStdout(), display.Inconsistencies(found))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Check one date (YYYY-MM-DD) instead of each symbol's latest")
	return cmd
}

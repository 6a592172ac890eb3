package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"TrendScreener/internal/consensus"
	"TrendScreener/internal/metrics"
	"TrendScreener/internal/notifier"
	"TrendScreener/internal/pipeline"
	"TrendScreener/internal/recorder"
	"TrendScreener/internal/screener"
)

// ErrRunInProgress is returned when a run is triggered while another is active.
var ErrRunInProgress = errors.New("scheduler: run already in progress")

// Sender delivers chat messages. *notifier.TelegramNotifier satisfies it.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

const sendRetries = 3

// Scheduler owns the daily batch run and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Runner    *pipeline.Runner
	Consensus *consensus.Engine
	Recorder  recorder.Recorder
	Notifier  Sender                // optional
	Metrics   *metrics.Metrics      // optional
	Health    *metrics.HealthStatus // optional
	Symbols   []string
	TopN      int
	Ctx       context.Context

	mu      sync.Mutex
	running bool
	last    *pipeline.Report
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner *pipeline.Runner, cons *consensus.Engine, rec recorder.Recorder, symbols []string, topN int) *Scheduler {
	if topN <= 0 {
		topN = consensus.DefaultLimit
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Runner:    runner,
		Consensus: cons,
		Recorder:  rec,
		Symbols:   symbols,
		TopN:      topN,
		Ctx:       ctx,
	}
}

// Register adds the daily screening job.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("symbols", len(s.Symbols)).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// LastReport returns the most recent completed run, or nil.
func (s *Scheduler) LastReport() *pipeline.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunNow(s.Ctx); err != nil {
		log.Error().Err(err).Msg("daily run")
	}
}

// RunNow runs the batch, ranks the screened records and sends the report.
// Overlapping calls fail fast with ErrRunInProgress.
func (s *Scheduler) RunNow(ctx context.Context) (*pipeline.Report, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	rep, err := s.Runner.Run(ctx, s.Symbols)
	if err != nil {
		s.trySend(fmt.Sprintf("❌ Screening run aborted: %v", err))
		return nil, err
	}

	recs := s.Consensus.Rank(rep.Records, s.TopN)
	eligible := 0
	for _, r := range rep.Records {
		if s.Consensus.Eligible(r) {
			eligible++
		}
	}
	if s.Metrics != nil {
		s.Metrics.Eligible.Set(float64(eligible))
	}
	if s.Health != nil {
		s.Health.SetLastRun(rep.RunID, rep.FinishedAt)
	}

	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()

	log.Info().Str("run_id", rep.RunID).Int("eligible", eligible).Int("ranked", len(recs)).Msg("run ranked")
	s.trySend(notifier.FormatRunReport(rep, recs))
	return rep, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch strings.ToLower(fields[0]) {
	case "/top":
		records, err := s.Recorder.LatestScreeningRecords(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Load records failed: %v", err)
		}
		return notifier.FormatRecommendations(s.Consensus.Rank(records, s.TopN))
	case "/signal":
		if len(fields) < 2 {
			return "Usage: /signal SYMBOL"
		}
		symbol := strings.ToUpper(fields[1])
		sig, err := s.Recorder.LatestSignal(ctx, symbol)
		if err != nil {
			return fmt.Sprintf("❌ Load signal failed: %v", err)
		}
		if sig == nil {
			return fmt.Sprintf("No signal stored for %s.", symbol)
		}
		return notifier.FormatSignal(sig)
	case "/status":
		return s.status()
	case "/check":
		records, err := s.Recorder.LatestScreeningRecords(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Load records failed: %v", err)
		}
		return notifier.FormatInconsistencies(screener.CheckConsistency(records))
	case "/run":
		go func() {
			if _, err := s.RunNow(s.Ctx); err != nil {
				log.Error().Err(err).Msg("manual run")
				if errors.Is(err, ErrRunInProgress) {
					s.trySend("⏳ A run is already in progress.")
				}
			}
		}()
		return "🚀 Run started."
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) status() string {
	rep := s.LastReport()
	if rep == nil {
		return fmt.Sprintf("ℹ️ No run yet. Watching %d symbols.", len(s.Symbols))
	}
	source := "rules"
	if rep.UsingModel {
		source = "model"
	}
	return fmt.Sprintf("ℹ️ <b>Last run</b> %s\nFinished: %s\nScreened: %d | Insufficient: %d | Failed: %d\nSignals: %s",
		rep.RunID, rep.FinishedAt.Format(time.RFC3339), rep.Screened, rep.Insufficient, rep.Failed, source)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"TrendScreener/internal/model"
)

// DefaultModelTimeout bounds a single model call.
const DefaultModelTimeout = 5 * time.Second

// ModelStrategy asks a Predictor for the decision.
type ModelStrategy struct {
	Predictor Predictor
	Timeout   time.Duration
}

func (m *ModelStrategy) Name() string { return string(model.SourceModel) }

// Decide runs the prediction under its own timeout. A predictor that ignores
// ctx is abandoned once the deadline passes; a panic becomes an error.
func (m *ModelStrategy) Decide(ctx context.Context, symbol string, f Features) (Decision, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		p   Prediction
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("predictor panic: %v", r)}
			}
		}()
		p, err := m.Predictor.Predict(ctx, symbol, f)
		done <- result{p: p, err: err}
	}()

	select {
	case <-ctx.Done():
		return Decision{}, fmt.Errorf("predict %s: %w", symbol, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return Decision{}, fmt.Errorf("predict %s: %w", symbol, r.err)
		}
		if err := validate(r.p); err != nil {
			return Decision{}, fmt.Errorf("predict %s: %w", symbol, err)
		}
		return Decision{
			Value:      model.SignalValue(r.p.Signal),
			Confidence: r.p.Confidence,
			Source:     model.SourceModel,
		}, nil
	}
}

// Counter is satisfied by prometheus.Counter.
type Counter interface {
	Inc()
}

// FallbackStrategy uses Primary and drops to Fallback on any failure.
// Errors from Primary are logged and counted, never returned.
type FallbackStrategy struct {
	Primary   Strategy
	Fallback  Strategy
	Fallbacks Counter
}

func (s *FallbackStrategy) Name() string {
	return s.Primary.Name() + "+" + s.Fallback.Name()
}

func (s *FallbackStrategy) Decide(ctx context.Context, symbol string, f Features) (Decision, error) {
	d, err := s.tryPrimary(ctx, symbol, f)
	if err == nil {
		return d, nil
	}
	log.Warn().Err(err).Str("symbol", symbol).Str("strategy", s.Primary.Name()).Msg("falling back to rules")
	if s.Fallbacks != nil {
		s.Fallbacks.Inc()
	}
	return s.Fallback.Decide(ctx, symbol, f)
}

func (s *FallbackStrategy) tryPrimary(ctx context.Context, symbol string, f Features) (d Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panic: %v", s.Primary.Name(), r)
		}
	}()
	return s.Primary.Decide(ctx, symbol, f)
}

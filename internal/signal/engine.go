package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"TrendScreener/internal/calculator"
	"TrendScreener/internal/model"
)

// Moving averages compared by the rule strategy.
const (
	ShortMAPeriod  = 20
	MediumMAPeriod = 50
)

// Options configures an Engine.
type Options struct {
	ModelTimeout time.Duration
	Fallbacks    Counter
}

// Engine produces one Signal per symbol. The strategy is fixed at
// construction time; it is safe for concurrent use.
type Engine struct {
	strategy   Strategy
	usingModel bool
}

// NewEngine probes predictor once. A nil predictor, or one whose Initialize
// fails, leaves the engine on the rule strategy.
func NewEngine(ctx context.Context, predictor Predictor, opts Options) *Engine {
	rules := RuleStrategy{}
	if predictor == nil {
		return &Engine{strategy: rules}
	}
	if err := predictor.Initialize(ctx); err != nil {
		log.Warn().Err(err).Msg("predictive model unavailable, using rules")
		return &Engine{strategy: rules}
	}
	log.Info().Dur("timeout", opts.ModelTimeout).Msg("predictive model initialized")
	return &Engine{
		strategy: &FallbackStrategy{
			Primary:   &ModelStrategy{Predictor: predictor, Timeout: opts.ModelTimeout},
			Fallback:  rules,
			Fallbacks: opts.Fallbacks,
		},
		usingModel: true,
	}
}

// UsingModel reports whether the predictive model passed its startup probe.
func (e *Engine) UsingModel() bool {
	return e.usingModel
}

// Generate computes the indicator snapshot for the last bar and asks the
// strategy for a decision. Returns calculator.ErrInsufficientData when any
// snapshot indicator lacks history.
func (e *Engine) Generate(ctx context.Context, symbol string, bars []model.Bar) (*model.Signal, error) {
	if err := model.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("signal %s: %w", symbol, err)
	}
	snap, err := Snapshot(bars)
	if err != nil {
		return nil, fmt.Errorf("signal %s: %w", symbol, err)
	}

	d, err := e.strategy.Decide(ctx, symbol, snap)
	if err != nil {
		return nil, fmt.Errorf("signal %s: %w", symbol, err)
	}
	return &model.Signal{
		Symbol:     symbol,
		Date:       bars[len(bars)-1].Day(),
		Value:      d.Value,
		Confidence: d.Confidence,
		Source:     d.Source,
		Indicators: snap,
	}, nil
}

// Snapshot computes every indicator attached to a signal.
func Snapshot(bars []model.Bar) (model.IndicatorSnapshot, error) {
	var s model.IndicatorSnapshot
	if len(bars) == 0 {
		return s, fmt.Errorf("snapshot: %w", calculator.ErrInsufficientData)
	}
	closes := model.Closes(bars)
	s.Price = closes[len(closes)-1]

	var err error
	if s.RSI, err = calculator.CalculateRSI(closes, 14); err != nil {
		return s, err
	}
	m, err := calculator.CalculateMACD(closes, calculator.MACDFast, calculator.MACDSlow, calculator.MACDSignal)
	if err != nil {
		return s, err
	}
	s.MACD, s.MACDSignal, s.MACDHistogram = m.MACD, m.Signal, m.Histogram

	bb, err := calculator.CalculateBollinger(closes, calculator.BollingerPeriod, calculator.BollingerMultiplier)
	if err != nil {
		return s, err
	}
	s.BollingerUpper, s.BollingerMiddle, s.BollingerLower = bb.Upper, bb.Middle, bb.Lower

	if s.OBV, err = calculator.CalculateOBV(closes, model.Volumes(bars)); err != nil {
		return s, err
	}

	ich, err := calculator.CalculateIchimoku(bars, calculator.TenkanPeriod, calculator.KijunPeriod, calculator.SenkouBPeriod)
	if err != nil {
		return s, err
	}
	s.Tenkan, s.Kijun, s.SenkouA, s.SenkouB = ich.Tenkan, ich.Kijun, ich.SenkouA, ich.SenkouB

	if s.ShortMA, err = calculator.CalculateSMA(closes, ShortMAPeriod); err != nil {
		return s, err
	}
	if s.MediumMA, err = calculator.CalculateSMA(closes, MediumMAPeriod); err != nil {
		return s, err
	}
	s.ShortAboveMed = s.ShortMA > s.MediumMA
	return s, nil
}

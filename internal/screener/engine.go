package screener

import (
	"errors"
	"fmt"

	"TrendScreener/internal/calculator"
	"TrendScreener/internal/model"
)

// MinBars is the hard gate: below this no record is produced.
const MinBars = 200

// Options tunes the screening windows. Zero values fall back to defaults.
type Options struct {
	RSLookback   int
	TrendOffset  int
	RangeWindow  int
	VolumePeriod int
}

// DefaultOptions returns the standard screening windows.
func DefaultOptions() Options {
	return Options{
		RSLookback:   calculator.DefaultRSLookback,
		TrendOffset:  calculator.DefaultTrendOffset,
		RangeWindow:  calculator.TradingDaysPerYear,
		VolumePeriod: 50,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.RSLookback <= 0 {
		o.RSLookback = d.RSLookback
	}
	if o.TrendOffset <= 0 {
		o.TrendOffset = d.TrendOffset
	}
	if o.RangeWindow <= 0 {
		o.RangeWindow = d.RangeWindow
	}
	if o.VolumePeriod <= 0 {
		o.VolumePeriod = d.VolumePeriod
	}
	return o
}

// Engine evaluates the 14 screening criteria. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	opts Options
}

// New creates a screening engine.
func New(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// Options returns the effective windows.
func (e *Engine) Options() Options {
	return e.opts
}

// Screen builds the screening record for the last bar. benchmark may be nil,
// in which case relative strength fails and is reported as nil.
func (e *Engine) Screen(symbol string, bars, benchmark []model.Bar) (*model.ScreeningRecord, error) {
	if err := model.ValidateBars(bars); err != nil {
		return nil, fmt.Errorf("screen %s: %w", symbol, err)
	}
	if len(bars) < MinBars {
		return nil, fmt.Errorf("screen %s: %w (have %d bars, need %d)",
			symbol, calculator.ErrInsufficientData, len(bars), MinBars)
	}

	closes := model.Closes(bars)
	last := bars[len(bars)-1]
	price := last.Close

	rec := &model.ScreeningRecord{
		Symbol:        symbol,
		Date:          last.Day(),
		CurrentPrice:  price,
		Volume:        last.Volume,
		TotalCriteria: model.TotalCriteria,
	}

	// Moving averages: 200 bars are guaranteed, so these cannot fail.
	rec.MA20, _ = calculator.CalculateSMA(closes, 20)
	rec.MA50, _ = calculator.CalculateSMA(closes, 50)
	rec.MA150, _ = calculator.CalculateSMA(closes, 150)
	rec.MA200, _ = calculator.CalculateSMA(closes, 200)

	c := &rec.Criteria
	c.PriceAboveMA150 = price > rec.MA150
	c.MA150AboveMA200 = rec.MA150 > rec.MA200
	c.MA200TrendingUp = calculator.IsMA200TrendingUp(closes, e.opts.TrendOffset)
	c.MA50AboveMA150 = rec.MA50 > rec.MA150
	c.PriceAboveMA50 = price > rec.MA50
	c.PriceAboveMA20 = price > rec.MA20

	if high, low, err := calculator.CalculateRange(bars, e.opts.RangeWindow); err == nil {
		rec.High52w, rec.Low52w = high, low
		c.AboveLow52w = price > low*1.30
		c.NearHigh52w = price >= high*0.97
	}

	if len(benchmark) > 0 {
		if err := model.ValidateBars(benchmark); err != nil {
			return nil, fmt.Errorf("screen %s: benchmark: %w", symbol, err)
		}
		rs, err := calculator.CalculateRelativeStrength(closes, model.Closes(benchmark), e.opts.RSLookback)
		if err == nil {
			rec.RelativeStrength = &rs
			c.RelativeStrengthUp = rs > 0
		} else if !errors.Is(err, calculator.ErrInsufficientData) {
			return nil, fmt.Errorf("screen %s: %w", symbol, err)
		}
	}

	if rsi, err := calculator.CalculateRSI(closes, 14); err == nil {
		rec.RSI = rsi
		c.RSIInRange = rsi >= 30 && rsi <= 70
	}

	if avg, err := calculator.CalculateVolumeAverage(model.Volumes(bars), e.opts.VolumePeriod); err == nil {
		rec.VolumeAverage = avg
		c.VolumeAboveAverage = float64(last.Volume) > avg
	}

	if m, err := calculator.CalculateMACD(closes, calculator.MACDFast, calculator.MACDSlow, calculator.MACDSignal); err == nil {
		rec.MACD, rec.MACDSignal, rec.MACDHistogram = m.MACD, m.Signal, m.Histogram
		c.MACDBullish = m.MACD > m.Signal
	}

	if adx, err := calculator.CalculateADX(bars, calculator.ADXPeriod); err == nil {
		rec.ADX = adx
		c.StrongTrend = adx > calculator.StrongTrendADX
	}

	if bb, err := calculator.CalculateBollinger(closes, calculator.BollingerPeriod, calculator.BollingerMultiplier); err == nil {
		rec.BollingerUpper, rec.BollingerMiddle, rec.BollingerLower = bb.Upper, bb.Middle, bb.Lower
		c.InsideBollinger = bb.Contains(price)
	}

	rec.PassedCriteria = rec.Recount()
	return rec, nil
}

package calculator

import (
	"slices"

	"TrendScreener/internal/model"
)

// TradingDaysPerYear is the 52-week window length in daily bars.
const TradingDaysPerYear = 252

// Calculate52WeekRange returns the highest high and lowest low of the last
// 252 bars, or of every bar when fewer are available.
func Calculate52WeekRange(dailyBars []model.Bar) (high, low float64, err error) {
	return CalculateRange(dailyBars, TradingDaysPerYear)
}

// CalculateRange is Calculate52WeekRange over an arbitrary trailing window.
func CalculateRange(dailyBars []model.Bar, window int) (high, low float64, err error) {
	if len(dailyBars) == 0 {
		return 0, 0, insufficient("range", 0, 1)
	}
	if window <= 0 || window > len(dailyBars) {
		window = len(dailyBars)
	}
	tail := dailyBars[len(dailyBars)-window:]
	return slices.Max(model.Highs(tail)), slices.Min(model.Lows(tail)), nil
}

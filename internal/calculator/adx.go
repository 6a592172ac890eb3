package calculator

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"TrendScreener/internal/model"
)

// ADXPeriod is the default Wilder smoothing period.
const ADXPeriod = 14

// StrongTrendADX is the ADX level above which a trend counts as strong.
const StrongTrendADX = 25.0

// CalculateADX returns Wilder's Average Directional Index for the last bar.
// Requires 2*period bars: period to seed the directional movement and
// period more to seed the DX average.
func CalculateADX(bars []model.Bar, period int) (float64, error) {
	if err := checkPeriod("adx", period); err != nil {
		return 0, err
	}
	if len(bars) < 2*period {
		return 0, insufficient("adx", len(bars), 2*period)
	}
	out := talib.Adx(model.Highs(bars), model.Lows(bars), model.Closes(bars), period)
	adx := out[len(out)-1]
	if math.IsNaN(adx) || adx < 0 {
		return 0, nil
	}
	return adx, nil
}

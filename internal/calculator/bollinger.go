package calculator

import talib "github.com/markcheno/go-talib"

// Default Bollinger settings.
const (
	BollingerPeriod     = 20
	BollingerMultiplier = 2.0
)

// BollingerBands is the volatility envelope around the SMA.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Contains reports whether price lies inside [Lower, Upper].
func (b BollingerBands) Contains(price float64) bool {
	return price >= b.Lower && price <= b.Upper
}

// CalculateBollinger returns the bands over the trailing period prices using
// the population standard deviation of the same window.
func CalculateBollinger(prices []float64, period int, multiplier float64) (BollingerBands, error) {
	if err := checkPeriod("bollinger", period); err != nil {
		return BollingerBands{}, err
	}
	if len(prices) < period {
		return BollingerBands{}, insufficient("bollinger", len(prices), period)
	}
	window := prices[len(prices)-period:]
	middle, err := CalculateSMA(window, period)
	if err != nil {
		return BollingerBands{}, err
	}
	std := talib.StdDev(window, period, 1.0)[period-1]
	if std < 0 {
		std = 0
	}
	width := multiplier * std
	return BollingerBands{
		Upper:  middle + width,
		Middle: middle,
		Lower:  middle - width,
	}, nil
}

package calculator

import talib "github.com/markcheno/go-talib"

// Default MACD periods.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACDResult holds the last MACD line, signal line and histogram values.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// CalculateEMA returns the exponential moving average series seeded by the SMA
// of the first period values. Entries before index period-1 are zero.
func CalculateEMA(prices []float64, period int) ([]float64, error) {
	if err := checkPeriod("ema", period); err != nil {
		return nil, err
	}
	if len(prices) < period {
		return nil, insufficient("ema", len(prices), period)
	}
	return talib.Ema(prices, period), nil
}

// CalculateMACD computes MACD(fast, slow, signal) on the given prices.
// Requires slow+signal-1 prices: slow to seed the slow EMA and signal-1 more
// MACD values to seed the signal EMA.
func CalculateMACD(prices []float64, fast, slow, signal int) (MACDResult, error) {
	for _, p := range []int{fast, slow, signal} {
		if err := checkPeriod("macd", p); err != nil {
			return MACDResult{}, err
		}
	}
	if fast > slow {
		fast, slow = slow, fast
	}
	need := slow + signal - 1
	if len(prices) < need {
		return MACDResult{}, insufficient("macd", len(prices), need)
	}

	fastEMA := talib.Ema(prices, fast)
	slowEMA := talib.Ema(prices, slow)

	// line[j] corresponds to prices[slow-1+j]
	line := make([]float64, len(prices)-(slow-1))
	for i := slow - 1; i < len(prices); i++ {
		line[i-(slow-1)] = fastEMA[i] - slowEMA[i]
	}
	signalEMA := talib.Ema(line, signal)

	last := len(line) - 1
	res := MACDResult{
		MACD:   line[last],
		Signal: signalEMA[last],
	}
	res.Histogram = res.MACD - res.Signal
	return res, nil
}

package calculator

// DefaultTrendOffset is how far back the 200-day MA is compared to decide its trend.
const DefaultTrendOffset = 20

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	return CalculateSMAAt(prices, period, 0)
}

// CalculateSMAAt computes the SMA of the window ending offset bars before the last one.
// Offset 0 is the most recent window.
func CalculateSMAAt(prices []float64, period, offset int) (float64, error) {
	if err := checkPeriod("sma", period); err != nil {
		return 0, err
	}
	if offset < 0 {
		offset = 0
	}
	if len(prices) < period+offset {
		return 0, insufficient("sma", len(prices), period+offset)
	}
	end := len(prices) - offset
	sum := 0.0
	for i := end - period; i < end; i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// IsMA200TrendingUp compares the current 200-day SMA with the one offset bars earlier.
// Without 200+offset closes it reports false rather than insufficient data.
func IsMA200TrendingUp(closes []float64, offset int) bool {
	if offset <= 0 {
		offset = DefaultTrendOffset
	}
	now, err := CalculateSMAAt(closes, 200, 0)
	if err != nil {
		return false
	}
	prior, err := CalculateSMAAt(closes, 200, offset)
	if err != nil {
		return false
	}
	return now > prior
}

// CalculateVolumeAverage returns the mean of the trailing period volumes.
func CalculateVolumeAverage(volumes []int64, period int) (float64, error) {
	if err := checkPeriod("volume average", period); err != nil {
		return 0, err
	}
	if len(volumes) < period {
		return 0, insufficient("volume average", len(volumes), period)
	}
	var sum float64
	for _, v := range volumes[len(volumes)-period:] {
		sum += float64(v)
	}
	return sum / float64(period), nil
}

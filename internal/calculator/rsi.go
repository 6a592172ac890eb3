package calculator

// CalculateRSI computes RSI over the last period price changes.
// Average gain and loss are the summed moves divided by period.
// Requires at least period+1 prices. A window without losses yields exactly 100.
func CalculateRSI(prices []float64, period int) (float64, error) {
	if err := checkPeriod("rsi", period); err != nil {
		return 0, err
	}
	if len(prices) < period+1 {
		return 0, insufficient("rsi", len(prices), period+1)
	}

	var avgGain, avgLoss float64
	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change // make positive
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	rsi := 100.0 - 100.0/(1.0+rs)
	return rsi, nil
}

package calculator

import "fmt"

// DefaultRSLookback is roughly three months of trading days.
const DefaultRSLookback = 60

// CalculateTrailingReturn returns the fractional return of the last close over
// the close lookback bars earlier.
func CalculateTrailingReturn(closes []float64, lookback int) (float64, error) {
	if err := checkPeriod("trailing return", lookback); err != nil {
		return 0, err
	}
	if len(closes) < lookback+1 {
		return 0, insufficient("trailing return", len(closes), lookback+1)
	}
	base := closes[len(closes)-1-lookback]
	if base <= 0 {
		return 0, fmt.Errorf("trailing return: non-positive base price %.4f", base)
	}
	return closes[len(closes)-1]/base - 1, nil
}

// CalculateRelativeStrength returns the symbol's trailing return minus the
// benchmark's over the same lookback, in percentage points.
// Positive means the symbol outperformed.
func CalculateRelativeStrength(symbolCloses, benchmarkCloses []float64, lookback int) (float64, error) {
	sr, err := CalculateTrailingReturn(symbolCloses, lookback)
	if err != nil {
		return 0, fmt.Errorf("symbol: %w", err)
	}
	br, err := CalculateTrailingReturn(benchmarkCloses, lookback)
	if err != nil {
		return 0, fmt.Errorf("benchmark: %w", err)
	}
	return (sr - br) * 100, nil
}

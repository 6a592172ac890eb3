package calculator

import "fmt"

// CalculateOBV returns the on-balance volume: volume is added on an up close,
// subtracted on a down close and ignored on a flat close.
func CalculateOBV(closes []float64, volumes []int64) (int64, error) {
	if len(closes) != len(volumes) {
		return 0, fmt.Errorf("obv: %d closes but %d volumes", len(closes), len(volumes))
	}
	if len(closes) == 0 {
		return 0, insufficient("obv", 0, 1)
	}
	var obv int64
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			obv += volumes[i]
		case closes[i] < closes[i-1]:
			obv -= volumes[i]
		}
	}
	return obv, nil
}

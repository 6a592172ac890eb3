package calculator

import (
	talib "github.com/markcheno/go-talib"

	"TrendScreener/internal/model"
)

// Default Ichimoku periods.
const (
	TenkanPeriod  = 9
	KijunPeriod   = 26
	SenkouBPeriod = 52
)

// Ichimoku holds the four cloud components for the last bar.
type Ichimoku struct {
	Tenkan  float64
	Kijun   float64
	SenkouA float64
	SenkouB float64
}

// CalculateIchimoku computes tenkan, kijun and senkou B as the midpoint of the
// highest high and lowest low over their periods; senkou A averages tenkan and kijun.
func CalculateIchimoku(bars []model.Bar, tenkanPeriod, kijunPeriod, senkouBPeriod int) (Ichimoku, error) {
	need := 0
	for _, p := range []int{tenkanPeriod, kijunPeriod, senkouBPeriod} {
		if err := checkPeriod("ichimoku", p); err != nil {
			return Ichimoku{}, err
		}
		if p > need {
			need = p
		}
	}
	if len(bars) < need {
		return Ichimoku{}, insufficient("ichimoku", len(bars), need)
	}
	highs, lows := model.Highs(bars), model.Lows(bars)
	mid := func(period int) float64 {
		out := talib.MidPrice(highs, lows, period)
		return out[len(out)-1]
	}
	ich := Ichimoku{
		Tenkan:  mid(tenkanPeriod),
		Kijun:   mid(kijunPeriod),
		SenkouB: mid(senkouBPeriod),
	}
	ich.SenkouA = (ich.Tenkan + ich.Kijun) / 2
	return ich, nil
}

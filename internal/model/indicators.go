package model

import "time"

// TotalCriteria is the number of boolean filters in a screening record.
const TotalCriteria = 14

// Criteria holds the 14 screening filters: eight trend-template checks
// followed by six technical filters.
type Criteria struct {
	PriceAboveMA150    bool `json:"price_above_ma150"`
	MA150AboveMA200    bool `json:"ma150_above_ma200"`
	MA200TrendingUp    bool `json:"ma200_trending_up"`
	MA50AboveMA150     bool `json:"ma50_above_ma150"`
	PriceAboveMA50     bool `json:"price_above_ma50"`
	AboveLow52w        bool `json:"above_low_52w"`
	NearHigh52w        bool `json:"near_high_52w"`
	RelativeStrengthUp bool `json:"relative_strength_up"`
	RSIInRange         bool `json:"rsi_in_range"`
	VolumeAboveAverage bool `json:"volume_above_average"`
	MACDBullish        bool `json:"macd_bullish"`
	StrongTrend        bool `json:"strong_trend"`
	PriceAboveMA20     bool `json:"price_above_ma20"`
	InsideBollinger    bool `json:"inside_bollinger"`
}

// Values returns the criteria in evaluation order.
func (c Criteria) Values() [TotalCriteria]bool {
	return [TotalCriteria]bool{
		c.PriceAboveMA150,
		c.MA150AboveMA200,
		c.MA200TrendingUp,
		c.MA50AboveMA150,
		c.PriceAboveMA50,
		c.AboveLow52w,
		c.NearHigh52w,
		c.RelativeStrengthUp,
		c.RSIInRange,
		c.VolumeAboveAverage,
		c.MACDBullish,
		c.StrongTrend,
		c.PriceAboveMA20,
		c.InsideBollinger,
	}
}

// CriteriaNames lists the criterion names in evaluation order.
var CriteriaNames = [TotalCriteria]string{
	"price_above_ma150",
	"ma150_above_ma200",
	"ma200_trending_up",
	"ma50_above_ma150",
	"price_above_ma50",
	"above_low_52w",
	"near_high_52w",
	"relative_strength_up",
	"rsi_in_range",
	"volume_above_average",
	"macd_bullish",
	"strong_trend",
	"price_above_ma20",
	"inside_bollinger",
}

// Count returns how many criteria are true.
func (c Criteria) Count() int {
	n := 0
	for _, v := range c.Values() {
		if v {
			n++
		}
	}
	return n
}

// TrendTemplate reports whether the first eight (trend template) criteria all hold.
func (c Criteria) TrendTemplate() bool {
	v := c.Values()
	for i := 0; i < 8; i++ {
		if !v[i] {
			return false
		}
	}
	return true
}

// ScreeningRecord is the authoritative screening result for a symbol on a date.
type ScreeningRecord struct {
	Symbol       string
	Date         time.Time
	CurrentPrice float64
	MA20         float64
	MA50         float64
	MA150        float64
	MA200        float64

	Criteria Criteria

	RSI              float64
	MACD             float64
	MACDSignal       float64
	MACDHistogram    float64
	ADX              float64
	BollingerUpper   float64
	BollingerMiddle  float64
	BollingerLower   float64
	Volume           int64
	VolumeAverage    float64
	High52w          float64
	Low52w           float64
	RelativeStrength *float64 // nil when the benchmark is unavailable

	PassedCriteria int
	TotalCriteria  int
}

// Recount recomputes the passed-criteria count from the stored booleans.
func (r *ScreeningRecord) Recount() int {
	return r.Criteria.Count()
}

// Consistent reports whether the stored count matches the stored booleans.
func (r *ScreeningRecord) Consistent() bool {
	return r.PassedCriteria == r.Recount()
}

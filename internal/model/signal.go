package model

import "time"

// SignalValue is a discrete trading decision.
type SignalValue int

const (
	SignalSell SignalValue = -1
	SignalHold SignalValue = 0
	SignalBuy  SignalValue = 1
)

// Valid reports whether v is one of sell/hold/buy.
func (v SignalValue) Valid() bool {
	return v == SignalSell || v == SignalHold || v == SignalBuy
}

func (v SignalValue) String() string {
	switch v {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	case SignalHold:
		return "HOLD"
	default:
		return "INVALID"
	}
}

// SignalSource indicates which strategy produced the decision.
type SignalSource string

const (
	SourceRules SignalSource = "rules"
	SourceModel SignalSource = "model"
)

// IndicatorSnapshot is the explainability data attached to every signal.
type IndicatorSnapshot struct {
	RSI             float64 `json:"rsi"`
	MACD            float64 `json:"macd"`
	MACDSignal      float64 `json:"macd_signal"`
	MACDHistogram   float64 `json:"macd_histogram"`
	BollingerUpper  float64 `json:"bollinger_upper"`
	BollingerMiddle float64 `json:"bollinger_middle"`
	BollingerLower  float64 `json:"bollinger_lower"`
	OBV             int64   `json:"obv"`
	Tenkan          float64 `json:"tenkan"`
	Kijun           float64 `json:"kijun"`
	SenkouA         float64 `json:"senkou_a"`
	SenkouB         float64 `json:"senkou_b"`
	ShortMA         float64 `json:"short_ma"`
	MediumMA        float64 `json:"medium_ma"`
	ShortAboveMed   bool    `json:"short_above_medium"`
	Price           float64 `json:"price"`
}

// Signal is the authoritative trading signal for a symbol on a date.
type Signal struct {
	Symbol     string
	Date       time.Time
	Value      SignalValue
	Confidence float64
	Source     SignalSource
	Indicators IndicatorSnapshot
}

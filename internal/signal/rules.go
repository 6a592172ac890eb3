package signal

import (
	"context"

	"TrendScreener/internal/model"
)

// Vote weights for the rule strategy.
const (
	weightRSI       = 0.30
	weightMACD      = 0.30
	weightMA        = 0.25
	weightBollinger = 0.15
)

// Score thresholds.
const (
	buyThreshold  = 0.2
	sellThreshold = -0.2
)

// RuleStrategy votes on RSI extremity, MACD histogram sign, the short/medium
// MA relationship and Bollinger band position.
type RuleStrategy struct{}

func (RuleStrategy) Name() string { return string(model.SourceRules) }

// Decide never fails.
func (RuleStrategy) Decide(_ context.Context, _ string, f Features) (Decision, error) {
	votes := []struct {
		vote   int
		weight float64
	}{
		{rsiVote(f.RSI), weightRSI},
		{sign(f.MACDHistogram), weightMACD},
		{sign(f.ShortMA - f.MediumMA), weightMA},
		{bollingerVote(f.Price, f.BollingerLower, f.BollingerUpper), weightBollinger},
	}

	score := 0.0
	for _, v := range votes {
		score += float64(v.vote) * v.weight
	}

	value := model.SignalHold
	switch {
	case score >= buyThreshold:
		value = model.SignalBuy
	case score <= sellThreshold:
		value = model.SignalSell
	}

	agree := 0
	for _, v := range votes {
		if v.vote == int(value) {
			agree++
		}
	}
	return Decision{
		Value:      value,
		Confidence: 0.5 + 0.45*float64(agree)/float64(len(votes)),
		Source:     model.SourceRules,
	}, nil
}

func rsiVote(rsi float64) int {
	switch {
	case rsi < 30:
		return 1
	case rsi > 70:
		return -1
	}
	return 0
}

func bollingerVote(price, lower, upper float64) int {
	switch {
	case price < lower:
		return 1
	case price > upper:
		return -1
	}
	return 0
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

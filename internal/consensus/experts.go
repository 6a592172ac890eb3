package consensus

import (
	"strings"

	"TrendScreener/internal/model"
)

// Expert ids, in the order their scores appear on a Recommendation.
const (
	ExpertTrend   = "trend-following"
	ExpertGARP    = "growth-at-reasonable-price"
	ExpertQuality = "quality-value"
)

// Expert scores one screening record.
type Expert interface {
	ID() string
	Score(r *model.ScreeningRecord) model.ExpertScore
}

// condition is one bonus or penalty of an expert.
type condition struct {
	name   string
	points float64
	holds  func(r *model.ScreeningRecord) bool
}

// weightedExpert scores base * passed ratio plus every condition that holds.
// Only positive conditions are named in the rationale.
type weightedExpert struct {
	id         string
	base       float64
	conditions []condition
}

func (e weightedExpert) ID() string { return e.id }

func (e weightedExpert) Score(r *model.ScreeningRecord) model.ExpertScore {
	score := e.base * passedRatio(r)
	var bonuses []string
	for _, c := range e.conditions {
		if !c.holds(r) {
			continue
		}
		score += c.points
		if c.points > 0 {
			bonuses = append(bonuses, c.name)
		}
	}
	rationale := "no bonus conditions"
	if len(bonuses) > 0 {
		rationale = strings.Join(bonuses, ", ")
	}
	return model.ExpertScore{
		Expert:    e.id,
		Score:     clamp(score),
		Rationale: rationale,
	}
}

func passedRatio(r *model.ScreeningRecord) float64 {
	total := r.TotalCriteria
	if total <= 0 {
		total = model.TotalCriteria
	}
	return float64(r.PassedCriteria) / float64(total)
}

// clamp floors at 0 and caps at 100.
func clamp(score float64) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return int(score)
}

// TrendFollowing rewards stage-two alignment and proximity to highs.
func TrendFollowing() Expert {
	return weightedExpert{
		id:   ExpertTrend,
		base: 40,
		conditions: []condition{
			{"ma alignment", 20, func(r *model.ScreeningRecord) bool {
				return r.CurrentPrice > r.MA50 && r.MA50 > r.MA150 && r.MA150 > r.MA200
			}},
			{"rising 200-day", 10, func(r *model.ScreeningRecord) bool { return r.Criteria.MA200TrendingUp }},
			{"near 52-week high", 10, func(r *model.ScreeningRecord) bool { return r.Criteria.NearHigh52w }},
			{"strong adx", 10, func(r *model.ScreeningRecord) bool { return r.Criteria.StrongTrend }},
			{"macd bullish", 5, func(r *model.ScreeningRecord) bool { return r.Criteria.MACDBullish }},
			{"volume confirmation", 5, func(r *model.ScreeningRecord) bool { return r.Criteria.VolumeAboveAverage }},
			{"below 50-day", -15, func(r *model.ScreeningRecord) bool { return r.CurrentPrice < r.MA50 }},
		},
	}
}

// GrowthAtReasonablePrice rewards momentum that is not yet stretched.
func GrowthAtReasonablePrice() Expert {
	return weightedExpert{
		id:   ExpertGARP,
		base: 30,
		conditions: []condition{
			{"healthy rsi", 20, func(r *model.ScreeningRecord) bool { return r.RSI >= 40 && r.RSI <= 60 }},
			{"overbought", -15, func(r *model.ScreeningRecord) bool { return r.RSI > 70 }},
			{"not stretched", 15, func(r *model.ScreeningRecord) bool {
				return r.CurrentPrice <= r.BollingerMiddle+0.5*(r.BollingerUpper-r.BollingerMiddle)
			}},
			{"well off lows", 15, func(r *model.ScreeningRecord) bool { return r.Low52w > 0 && r.CurrentPrice > r.Low52w*1.3 }},
			{"outperforming benchmark", 15, func(r *model.ScreeningRecord) bool {
				return r.RelativeStrength != nil && *r.RelativeStrength > 0
			}},
			{"volume confirmation", 5, func(r *model.ScreeningRecord) bool { return r.Criteria.VolumeAboveAverage }},
			{"extended above 50-day", -10, func(r *model.ScreeningRecord) bool {
				return r.MA50 > 0 && r.CurrentPrice > r.MA50*1.25
			}},
		},
	}
}

// QualityValue rewards orderly pullbacks inside an intact long-term trend.
func QualityValue() Expert {
	return weightedExpert{
		id:   ExpertQuality,
		base: 30,
		conditions: []condition{
			{"long-term uptrend", 15, func(r *model.ScreeningRecord) bool { return r.MA150 > r.MA200 }},
			{"pullback rsi", 15, func(r *model.ScreeningRecord) bool { return r.RSI >= 30 && r.RSI <= 50 }},
			{"overbought", -10, func(r *model.ScreeningRecord) bool { return r.RSI > 70 }},
			{"near 50-day", 15, func(r *model.ScreeningRecord) bool {
				return r.MA50 > 0 && r.CurrentPrice >= r.MA50*0.95 && r.CurrentPrice <= r.MA50*1.05
			}},
			{"measured trend", 10, func(r *model.ScreeningRecord) bool { return r.ADX >= 20 && r.ADX <= 40 }},
			{"inside bands", 10, func(r *model.ScreeningRecord) bool { return r.Criteria.InsideBollinger }},
			{"below 200-day", -20, func(r *model.ScreeningRecord) bool { return r.CurrentPrice < r.MA200 }},
		},
	}
}

// DefaultExperts returns the three experts in fixed order.
func DefaultExperts() []Expert {
	return []Expert{TrendFollowing(), GrowthAtReasonablePrice(), QualityValue()}
}

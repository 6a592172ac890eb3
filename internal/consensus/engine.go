package consensus

import (
	"math"
	"sort"

	"TrendScreener/internal/model"
)

// DefaultMinPassed is the inclusive eligibility floor on passed criteria.
const DefaultMinPassed = 10

// DefaultLimit is used when Rank is called with limit <= 0.
const DefaultLimit = 5

// Labels maps consensus scores to a label, evaluated high to low.
var Labels = []struct {
	MinScore   int
	Label      model.Label
	Confidence float64
}{
	{80, model.LabelStrongBuy, 0.9},
	{65, model.LabelBuy, 0.8},
	{40, model.LabelHold, 0.6},
	{25, model.LabelAvoid, 0.5},
}

// mapLabel maps a consensus score to its label and confidence.
func mapLabel(score int) (model.Label, float64) {
	for _, l := range Labels {
		if score >= l.MinScore {
			return l.Label, l.Confidence
		}
	}
	return model.LabelStrongSell, 0.8
}

// Engine blends the experts into ranked recommendations.
type Engine struct {
	experts   []Expert
	minPassed int
}

// New creates an engine with the default experts. minPassed <= 0 uses DefaultMinPassed.
func New(minPassed int) *Engine {
	if minPassed <= 0 {
		minPassed = DefaultMinPassed
	}
	return &Engine{experts: DefaultExperts(), minPassed: minPassed}
}

// Evaluate scores a single record regardless of eligibility.
func (e *Engine) Evaluate(r *model.ScreeningRecord) model.Recommendation {
	scores := make([]model.ExpertScore, 0, len(e.experts))
	sum := 0
	for _, ex := range e.experts {
		s := ex.Score(r)
		scores = append(scores, s)
		sum += s.Score
	}
	consensus := int(math.Round(float64(sum) / float64(len(scores))))
	label, conf := mapLabel(consensus)
	return model.Recommendation{
		Symbol:         r.Symbol,
		ScreeningScore: r.PassedCriteria,
		ConsensusScore: consensus,
		Experts:        scores,
		Label:          label,
		Confidence:     conf,
		Record:         r,
	}
}

// Eligible reports whether r clears the passed-criteria floor.
func (e *Engine) Eligible(r *model.ScreeningRecord) bool {
	return r != nil && r.PassedCriteria >= e.minPassed
}

// Rank filters records below the floor, scores the rest, sorts them
// descending by consensus (ties keep input order) and then truncates to limit.
func (e *Engine) Rank(records []*model.ScreeningRecord, limit int) []model.Recommendation {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var recs []model.Recommendation
	for _, r := range records {
		if !e.Eligible(r) {
			continue
		}
		recs = append(recs, e.Evaluate(r))
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ConsensusScore > recs[j].ConsensusScore
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

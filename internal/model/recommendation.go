package model

// Label is the five-level consensus recommendation.
type Label string

const (
	LabelStrongBuy  Label = "STRONG BUY"
	LabelBuy        Label = "BUY"
	LabelHold       Label = "HOLD"
	LabelAvoid      Label = "AVOID"
	LabelStrongSell Label = "STRONG SELL"
)

// ExpertScore is one heuristic expert's view of a screening record.
type ExpertScore struct {
	Expert    string
	Score     int // 0~100
	Rationale string
}

// Recommendation combines three expert scores into a consensus.
type Recommendation struct {
	Symbol         string
	ScreeningScore int
	ConsensusScore int
	Experts        []ExpertScore
	Label          Label
	Confidence     float64
	Record         *ScreeningRecord
}

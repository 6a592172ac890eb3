package display

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"TrendScreener/internal/model"
	"TrendScreener/internal/pipeline"
	"TrendScreener/internal/screener"
)

var day = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func TestRecommendations(t *testing.T) {
	out := Recommendations([]model.Recommendation{{
		Symbol: "NVDA", ScreeningScore: 13, ConsensusScore: 88,
		Label: model.LabelStrongBuy, Confidence: 0.9,
		Experts: []model.ExpertScore{
			{Expert: "trend-following", Score: 95},
			{Expert: "quality-value", Score: 80},
		},
	}})
	assert.Contains(t, out, "NVDA")
	assert.Contains(t, out, "STRONG BUY")
	assert.Contains(t, out, "13/14")
	assert.Contains(t, out, "trend-following")
	assert.Contains(t, out, "90%")

	assert.Contains(t, Recommendations(nil), "No symbol cleared")
}

func TestSignals(t *testing.T) {
	out := Signals([]*model.Signal{{
		Symbol: "AAPL", Date: day, Value: model.SignalSell, Confidence: 0.725,
		Source: model.SourceModel, Indicators: model.IndicatorSnapshot{Price: 201.5, RSI: 74.2, OBV: 1500},
	}})
	for _, want := range []string{"AAPL", "2025-06-30", "SELL", "model", "201.50", "74.2", "1500"} {
		assert.Contains(t, out, want)
	}
}

func TestCriteria(t *testing.T) {
	rs := 12.5
	r := &model.ScreeningRecord{
		Symbol: "MSFT", Date: day, RelativeStrength: &rs,
		Criteria:       model.Criteria{PriceAboveMA50: true},
		PassedCriteria: 1, TotalCriteria: model.TotalCriteria,
	}
	out := Criteria(r)
	assert.Contains(t, out, "passed 1/14")
	assert.Contains(t, out, "RS +12.50")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "✗")
	for _, name := range model.CriteriaNames {
		assert.Contains(t, out, name)
	}

	r.RelativeStrength = nil
	assert.Contains(t, Criteria(r), "RS n/a")
}

func TestRunSummaryAndInconsistencies(t *testing.T) {
	out := RunSummary(&pipeline.Report{
		RunID: "r1", Screened: 1, Failed: 1,
		Outcomes: []pipeline.SymbolResult{
			{Symbol: "OK", Outcome: pipeline.OutcomeScreened},
			{Symbol: "BAD", Outcome: pipeline.OutcomeFailed, Err: errors.New("feed down")},
		},
	})
	assert.Contains(t, out, "Screened: 1 | Insufficient: 0 | Failed: 1")
	assert.Contains(t, out, "BAD failed: feed down")
	assert.NotContains(t, out, "OK screened")

	assert.Contains(t, Inconsistencies(nil), "consistent")
	out = Inconsistencies([]screener.Inconsistency{{Symbol: "OLD", Date: day, Stored: 12, Recount: 9}})
	assert.Contains(t, out, "1 inconsistent records")
	assert.Contains(t, out, "OLD")

	var buf bytes.Buffer
	Print(&buf, "hello")
	assert.Equal(t, "hello", buf.String())
}

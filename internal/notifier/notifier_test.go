package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScreener/internal/model"
	"TrendScreener/internal/pipeline"
	"TrendScreener/internal/screener"
)

type fakeBot struct {
	mu   sync.Mutex
	sent []map[string]string
	fail bool
}

func (f *fakeBot) server(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
			return
		}
		f.sent = append(f.sent, body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
}

func TestSend(t *testing.T) {
	bot := &fakeBot{}
	srv := bot.server(t)
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.SetBaseURL(srv.URL)
	require.NoError(t, tn.Send(context.Background(), "hello"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "42", bot.sent[0]["chat_id"])
	assert.Equal(t, "HTML", bot.sent[0]["parse_mode"])

	bot.mu.Lock()
	bot.fail = true
	bot.mu.Unlock()
	err := tn.Send(context.Background(), "hello")
	assert.ErrorContains(t, err, "chat not found")
	assert.ErrorContains(t, tn.SendWithRetry(context.Background(), "x", 0), "retries exhausted")
}

func TestDispatch(t *testing.T) {
	bot := &fakeBot{}
	srv := bot.server(t)
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.SetBaseURL(srv.URL)

	body := []byte(`{"ok":true,"result":[
		{"update_id": 7, "message": {"chat": {"id": 42}, "text": " /status "}},
		{"update_id": 8, "message": {"chat": {"id": 99}, "text": "/top"}},
		{"update_id": 9, "edited_message": {"text": "ignored"}}
	]}`)
	var got []string
	next := tn.dispatch(context.Background(), body, 0, func(_ context.Context, cmd string) string {
		got = append(got, cmd)
		return "reply to " + cmd
	})
	assert.Equal(t, int64(10), next)
	assert.Equal(t, []string{"/status"}, got)
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "reply to /status", bot.sent[0]["text"])
}

func sampleRecommendation() model.Recommendation {
	return model.Recommendation{
		Symbol: "AAPL", ScreeningScore: 12, ConsensusScore: 81,
		Label: model.LabelStrongBuy, Confidence: 0.9,
		Experts: []model.ExpertScore{{Expert: "trend-following", Score: 90, Rationale: "ma alignment, strong adx"}},
	}
}

func TestFormatRunReport(t *testing.T) {
	rep := &pipeline.Report{
		RunID:      "run-1",
		FinishedAt: time.Date(2025, 6, 30, 22, 0, 0, 0, time.UTC),
		Screened:   2, Failed: 1,
		Outcomes: []pipeline.SymbolResult{
			{Symbol: "AAPL", Outcome: pipeline.OutcomeScreened},
			{Symbol: "BAD", Outcome: pipeline.OutcomeFailed, Err: errors.New("x")},
		},
	}
	msg := FormatRunReport(rep, []model.Recommendation{sampleRecommendation()})
	assert.Contains(t, msg, "2025-06-30")
	assert.Contains(t, msg, "Screened: 2 | Insufficient: 0 | Failed: 1")
	assert.Contains(t, msg, "<b>AAPL</b> STRONG BUY (81)")
	assert.Contains(t, msg, "ma alignment, strong adx")
	assert.Contains(t, msg, "Failed: BAD")

	assert.Contains(t, FormatRecommendations(nil), "No symbol cleared")
}

func TestFormatSignalAndChecks(t *testing.T) {
	msg := FormatSignal(&model.Signal{
		Symbol: "A&B", Value: model.SignalBuy, Confidence: 0.95, Source: model.SourceRules,
		Indicators: model.IndicatorSnapshot{RSI: 25.4, OBV: -1200},
	})
	assert.Contains(t, msg, "A&amp;B")
	assert.Contains(t, msg, "BUY")
	assert.Contains(t, msg, "95% (rules)")
	assert.Contains(t, msg, "OBV: -1200")

	assert.Contains(t, FormatInconsistencies(nil), "consistent")
	assert.Contains(t, FormatInconsistencies([]screener.Inconsistency{{Symbol: "OLD", Stored: 12, Recount: 9}}), "stored 12, recount 9")
}

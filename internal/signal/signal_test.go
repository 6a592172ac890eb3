package signal

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScreener/internal/calculator"
	"TrendScreener/internal/model"
)

func walk(seed int64, n int) []model.Bar {
	r := rand.New(rand.NewSource(seed))
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	c := 100.0
	for i := range bars {
		c *= 1 + (r.Float64()-0.5)*0.05
		bars[i] = model.Bar{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.02,
			Low:    c * 0.98,
			Close:  c,
			Volume: int64(10_000 + r.Intn(90_000)),
		}
	}
	return bars
}

type stubPredictor struct {
	initErr error
	predict func(ctx context.Context) (Prediction, error)
}

func (s *stubPredictor) Initialize(context.Context) error { return s.initErr }

func (s *stubPredictor) Predict(ctx context.Context, _ string, _ Features) (Prediction, error) {
	return s.predict(ctx)
}

type counter struct{ n atomic.Int64 }

func (c *counter) Inc() { c.n.Add(1) }

func assertValid(t *testing.T, sig *model.Signal) {
	t.Helper()
	require.NotNil(t, sig)
	assert.True(t, sig.Value.Valid(), "value %d", sig.Value)
	assert.GreaterOrEqual(t, sig.Confidence, 0.0)
	assert.LessOrEqual(t, sig.Confidence, 1.0)
}

func TestRuleStrategy_Unanimous(t *testing.T) {
	buy := Features{RSI: 20, MACDHistogram: 0.5, ShortMA: 11, MediumMA: 10, Price: 8, BollingerLower: 9, BollingerUpper: 12}
	d, err := RuleStrategy{}.Decide(context.Background(), "X", buy)
	require.NoError(t, err)
	assert.Equal(t, model.SignalBuy, d.Value)
	assert.InDelta(t, 0.95, d.Confidence, 1e-9)
	assert.Equal(t, model.SourceRules, d.Source)

	sell := Features{RSI: 80, MACDHistogram: -0.5, ShortMA: 9, MediumMA: 10, Price: 13, BollingerLower: 9, BollingerUpper: 12}
	d, _ = RuleStrategy{}.Decide(context.Background(), "X", sell)
	assert.Equal(t, model.SignalSell, d.Value)
	assert.InDelta(t, 0.95, d.Confidence, 1e-9)
}

func TestRuleStrategy_SplitVote(t *testing.T) {
	f := Features{RSI: 25, MACDHistogram: -1, ShortMA: 11, MediumMA: 10, Price: 13, BollingerLower: 9, BollingerUpper: 12}
	d, err := RuleStrategy{}.Decide(context.Background(), "X", f)
	require.NoError(t, err)
	assert.Equal(t, model.SignalHold, d.Value)
	assert.InDelta(t, 0.5, d.Confidence, 1e-9)
}

func TestRuleStrategy_Partial(t *testing.T) {
	// MACD and MA agree on buy, RSI and Bollinger are neutral
	f := Features{RSI: 50, MACDHistogram: 1, ShortMA: 11, MediumMA: 10, Price: 10, BollingerLower: 9, BollingerUpper: 12}
	d, _ := RuleStrategy{}.Decide(context.Background(), "X", f)
	assert.Equal(t, model.SignalBuy, d.Value)
	assert.InDelta(t, 0.5+0.45*2/4, d.Confidence, 1e-9)
}

func TestGenerate_RulesOnly(t *testing.T) {
	e := NewEngine(context.Background(), nil, Options{})
	assert.False(t, e.UsingModel())

	for seed := int64(1); seed <= 20; seed++ {
		sig, err := e.Generate(context.Background(), "RND", walk(seed, 120))
		require.NoError(t, err)
		assertValid(t, sig)
		assert.Equal(t, model.SourceRules, sig.Source)
	}
}

func TestGenerate_InsufficientData(t *testing.T) {
	e := NewEngine(context.Background(), nil, Options{})
	_, err := e.Generate(context.Background(), "SHORT", walk(1, 51))
	assert.True(t, errors.Is(err, calculator.ErrInsufficientData))

	sig, err := e.Generate(context.Background(), "OK", walk(1, 52))
	require.NoError(t, err)
	assertValid(t, sig)
}

func TestGenerate_Snapshot(t *testing.T) {
	bars := walk(3, 100)
	sig, err := NewEngine(context.Background(), nil, Options{}).Generate(context.Background(), "S", bars)
	require.NoError(t, err)

	snap := sig.Indicators
	assert.InDelta(t, bars[99].Close, snap.Price, 1e-9)
	assert.GreaterOrEqual(t, snap.BollingerUpper, snap.BollingerMiddle)
	assert.GreaterOrEqual(t, snap.BollingerMiddle, snap.BollingerLower)
	assert.InDelta(t, (snap.Tenkan+snap.Kijun)/2, snap.SenkouA, 1e-9)
	assert.Equal(t, snap.ShortMA > snap.MediumMA, snap.ShortAboveMed)
	assert.Equal(t, bars[99].Day(), sig.Date)
}

func TestGenerate_ModelFailuresFallBack(t *testing.T) {
	cases := map[string]func(ctx context.Context) (Prediction, error){
		"error": func(context.Context) (Prediction, error) {
			return Prediction{}, errors.New("model exploded")
		},
		"panic": func(context.Context) (Prediction, error) {
			panic("boom")
		},
		"bad signal": func(context.Context) (Prediction, error) {
			return Prediction{Signal: 2, Confidence: 0.9}, nil
		},
		"bad confidence": func(context.Context) (Prediction, error) {
			return Prediction{Signal: 1, Confidence: math.NaN()}, nil
		},
		"timeout": func(ctx context.Context) (Prediction, error) {
			time.Sleep(200 * time.Millisecond)
			return Prediction{Signal: 1, Confidence: 1}, nil
		},
	}
	for name, predict := range cases {
		t.Run(name, func(t *testing.T) {
			fallbacks := &counter{}
			e := NewEngine(context.Background(), &stubPredictor{predict: predict},
				Options{ModelTimeout: 20 * time.Millisecond, Fallbacks: fallbacks})
			require.True(t, e.UsingModel())

			sig, err := e.Generate(context.Background(), "ML", walk(5, 80))
			require.NoError(t, err)
			assertValid(t, sig)
			assert.Equal(t, model.SourceRules, sig.Source)
			assert.Equal(t, int64(1), fallbacks.n.Load())
		})
	}
}

func TestGenerate_ModelUsed(t *testing.T) {
	p := &stubPredictor{predict: func(context.Context) (Prediction, error) {
		return Prediction{Signal: -1, Confidence: 0.7}, nil
	}}
	e := NewEngine(context.Background(), p, Options{})
	sig, err := e.Generate(context.Background(), "ML", walk(9, 80))
	require.NoError(t, err)
	assert.Equal(t, model.SignalSell, sig.Value)
	assert.InDelta(t, 0.7, sig.Confidence, 1e-9)
	assert.Equal(t, model.SourceModel, sig.Source)
	assert.NotZero(t, sig.Indicators.BollingerMiddle)
}

func TestNewEngine_InitFailure(t *testing.T) {
	called := false
	p := &stubPredictor{
		initErr: errors.New("no model"),
		predict: func(context.Context) (Prediction, error) {
			called = true
			return Prediction{Signal: 1, Confidence: 1}, nil
		},
	}
	e := NewEngine(context.Background(), p, Options{})
	assert.False(t, e.UsingModel())

	sig, err := e.Generate(context.Background(), "X", walk(2, 60))
	require.NoError(t, err)
	assert.Equal(t, model.SourceRules, sig.Source)
	assert.False(t, called)
}

func TestHTTPPredictor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/predict":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"signal": 1, "confidence": 0.82}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewHTTPPredictor(srv.URL, time.Second)
	require.NoError(t, p.Initialize(context.Background()))

	pred, err := p.Predict(context.Background(), "AAPL", Features{RSI: 40})
	require.NoError(t, err)
	assert.Equal(t, 1, pred.Signal)
	assert.InDelta(t, 0.82, pred.Confidence, 1e-9)
}

func TestHTTPPredictor_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPPredictor(srv.URL, time.Second)
	assert.Error(t, p.Initialize(context.Background()))
	assert.False(t, NewEngine(context.Background(), p, Options{}).UsingModel())
}

func TestParsePrediction(t *testing.T) {
	for _, body := range []string{`not json`, `{"signal": 1}`, `{"signal": "buy", "confidence": 0.5}`, `{"signal": 0.5, "confidence": 0.5}`} {
		_, err := parsePrediction([]byte(body))
		assert.True(t, errors.Is(err, ErrMalformedPrediction), body)
	}
	p, err := parsePrediction([]byte(`{"signal": -1, "confidence": 0}`))
	require.NoError(t, err)
	assert.Equal(t, Prediction{Signal: -1, Confidence: 0}, p)
}

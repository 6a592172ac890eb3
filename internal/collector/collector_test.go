package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendScreener/internal/model"
)

var asOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func TestGenerateBars(t *testing.T) {
	bars := GenerateBars("AAPL", asOf, 300)
	require.Len(t, bars, 300)
	require.NoError(t, model.ValidateBars(bars))
	assert.Equal(t, asOf, bars[299].Date)
	for _, b := range bars {
		assert.Greater(t, b.Close, 0.0)
		assert.GreaterOrEqual(t, b.High, b.Close)
		assert.LessOrEqual(t, b.Low, b.Close)
	}
	assert.Equal(t, bars, GenerateBars("AAPL", asOf, 300), "deterministic")
	assert.NotEqual(t, bars[0].Close, GenerateBars("MSFT", asOf, 300)[0].Close)
}

func TestMockSource(t *testing.T) {
	m := NewMockSource(100)
	m.Errs["BOOM"] = errors.New("feed down")
	m.Bars["FIXED"] = GenerateBars("FIXED", asOf, 10)

	bars, err := m.GetBars(context.Background(), "GEN", asOf.AddDate(0, 0, -9), asOf)
	require.NoError(t, err)
	assert.Len(t, bars, 10)

	_, err = m.GetBars(context.Background(), "BOOM", asOf, asOf)
	assert.Error(t, err)

	bars, err = m.GetBars(context.Background(), "FIXED", asOf.AddDate(0, 0, -2), asOf)
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, 1, m.Calls["FIXED"])

	empty := NewMockSource(0)
	bars, err = empty.GetBars(context.Background(), "NONE", asOf.AddDate(-1, 0, 0), asOf)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestHistory(t *testing.T) {
	bars, err := History(context.Background(), NewMockSource(1000), "SPY", asOf, 260)
	require.NoError(t, err)
	assert.Len(t, bars, 260)
	assert.Equal(t, asOf, bars[len(bars)-1].Date)

	m := NewMockSource(0)
	m.Errs["X"] = errors.New("nope")
	_, err = History(context.Background(), m, "X", asOf, 10)
	assert.ErrorContains(t, err, "mock X")
}

func TestNormalize(t *testing.T) {
	d := func(day int, c float64) model.Bar {
		return model.Bar{Date: asOf.AddDate(0, 0, day), Open: c, High: c, Low: c, Close: c}
	}
	got := normalize([]model.Bar{d(2, 3), d(0, 1), d(1, 2), d(1, 2.5), {Date: asOf.AddDate(0, 0, 3)}})
	require.Len(t, got, 3)
	assert.NoError(t, model.ValidateBars(got))
	assert.Equal(t, 2.5, got[1].Close, "last duplicate wins")
}

func TestDecodeVsBars(t *testing.T) {
	body := []byte(`[
		{"timestamp": 1719792000, "open": "10.5", "high": "11.25", "low": "10.00", "close": "11.00", "volume": "123456"},
		{"timestamp": 1719705600, "open": 10, "high": 10.5, "low": 9.5, "close": 10.25, "adj_close": 10.2, "volume": 1000}
	]`)
	bars, err := decodeVsBars(body)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Date.Before(bars[1].Date))
	assert.Equal(t, 10.2, bars[0].AdjClose)
	assert.Equal(t, 11.25, bars[1].High)
	assert.Equal(t, 11.0, bars[1].AdjClose, "adj close defaults to close")
	assert.Equal(t, int64(123456), bars[1].Volume)

	_, err = decodeVsBars([]byte(`{"oops"`))
	assert.Error(t, err)
}

func TestVsTraderSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			assert.Equal(t, "2025-06-30", r.URL.Query().Get("to"))
			_, _ = w.Write([]byte(`[{"timestamp": 1719705600, "open": "1", "high": "2", "low": "0.5", "close": "1.5", "volume": "10"}]`))
		case "GONE":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	src := NewVsTraderSource(srv.URL, "secret", "", 100)
	bars, err := src.GetBars(context.Background(), "AAPL", asOf.AddDate(0, -1, 0), asOf)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)

	bars, err = src.GetBars(context.Background(), "GONE", asOf, asOf)
	require.NoError(t, err)
	assert.Empty(t, bars)

	_, err = src.GetBars(context.Background(), "FAIL", asOf, asOf)
	assert.ErrorContains(t, err, "status 500")
}

func TestCachedSource_RedisDownFallsThrough(t *testing.T) {
	inner := NewMockSource(50)
	c := &CachedSource{
		Source: inner,
		Client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond}),
		TTL:    time.Minute,
		Prefix: "test",
	}
	defer c.Close()

	bars, err := c.GetBars(context.Background(), "AAPL", asOf.AddDate(0, 0, -4), asOf)
	require.NoError(t, err)
	assert.Len(t, bars, 5)
	assert.Equal(t, 1, inner.Calls["AAPL"])
	assert.Equal(t, "mock+redis", c.Name())
	assert.Equal(t, "test:mock:AAPL:2025-06-25:2025-06-30", c.key("AAPL", asOf.AddDate(0, 0, -5), asOf))
}

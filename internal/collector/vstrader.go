package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"TrendScreener/internal/model"
)

// VsTraderSource implements BarSource using the vstrader REST API.
type VsTraderSource struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewVsTraderSource creates a source with optional proxy support.
func NewVsTraderSource(baseURL, apiKey, proxyURL string, rps float64) *VsTraderSource {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	if rps <= 0 {
		rps = 5
	}
	return &VsTraderSource{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *VsTraderSource) Name() string { return "vstrader" }

// vsBar is the JSON shape returned by the vstrader API. Prices arrive as
// decimal strings.
type vsBar struct {
	Timestamp int64           `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	AdjClose  decimal.Decimal `json:"adj_close"`
	Volume    decimal.Decimal `json:"volume"`
}

func (s *VsTraderSource) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format(model.DateLayout),
			"to":     to.Format(model.DateLayout),
		}).
		Get("/api/v1/bars/daily")
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return decodeVsBars(resp.Body())
}

func decodeVsBars(body []byte) ([]model.Bar, error) {
	var vsBars []vsBar
	if err := json.Unmarshal(body, &vsBars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.Bar, len(vsBars))
	for i, vb := range vsBars {
		adj := vb.AdjClose
		if adj.IsZero() {
			adj = vb.Close
		}
		bars[i] = model.Bar{
			Date:     time.Unix(vb.Timestamp, 0).UTC(),
			Open:     vb.Open.InexactFloat64(),
			High:     vb.High.InexactFloat64(),
			Low:      vb.Low.InexactFloat64(),
			Close:    vb.Close.InexactFloat64(),
			AdjClose: adj.InexactFloat64(),
			Volume:   vb.Volume.IntPart(),
		}
	}
	return normalize(bars), nil
}

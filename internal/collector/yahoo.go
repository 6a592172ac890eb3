package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"golang.org/x/time/rate"

	"TrendScreener/internal/model"
)

// YahooSource implements BarSource using the Yahoo Finance chart API.
type YahooSource struct {
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	limiter   *rate.Limiter
}

// NewYahooSource creates a Yahoo source limited to rps requests per second.
func NewYahooSource(proxyURL string, rps float64) *YahooSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	finance.SetHTTPClient(&http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	})
	if rps <= 0 {
		rps = 2
	}
	return &YahooSource{
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
			"NDX":    "^NDX",
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *YahooSource) Name() string { return "yahoo" }

func (s *YahooSource) yahooSymbol(symbol string) string {
	if mapped, ok := s.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func (s *YahooSource) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	iter := chart.Get(&chart.Params{
		Symbol:   s.yahooSymbol(symbol),
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	})

	var bars []model.Bar
	for iter.Next() {
		b := iter.Bar()
		bars = append(bars, model.Bar{
			Date:     time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:     b.Open.InexactFloat64(),
			High:     b.High.InexactFloat64(),
			Low:      b.Low.InexactFloat64(),
			Close:    b.Close.InexactFloat64(),
			AdjClose: b.AdjClose.InexactFloat64(),
			Volume:   int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	return normalize(bars), nil
}

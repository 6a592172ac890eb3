package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"TrendScreener/internal/model"
)

// BarSource supplies daily bars. When data is simply unavailable it returns
// an empty slice and no error, so callers can apply their own history gates.
type BarSource interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error)
	Name() string
}

// History fetches roughly tradingDays bars ending at asOf.
func History(ctx context.Context, src BarSource, symbol string, asOf time.Time, tradingDays int) ([]model.Bar, error) {
	// ~5 trading days per 7 calendar days, plus slack for holidays
	from := asOf.AddDate(0, 0, -(tradingDays*7/5 + 10))
	bars, err := src.GetBars(ctx, symbol, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", src.Name(), symbol, err)
	}
	if len(bars) > tradingDays {
		bars = bars[len(bars)-tradingDays:]
	}
	return bars, nil
}

// normalize sorts bars ascending, drops empty bars and keeps the last bar
// seen for any duplicated day.
func normalize(bars []model.Bar) []model.Bar {
	out := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0 {
			continue // holidays come back as null rows
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day().Before(out[j].Day()) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Day().Equal(b.Day()) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

func inRange(b model.Bar, from, to time.Time) bool {
	d := b.Day()
	return !d.Before(truncateDay(from)) && !d.After(truncateDay(to))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package collector

import (
	"context"
	"math"
	"sync"
	"time"

	"TrendScreener/internal/model"
)

// MockSource returns fixed or generated data for development and testing.
type MockSource struct {
	mu     sync.Mutex
	Bars   map[string][]model.Bar
	Errs   map[string]error
	Calls  map[string]int
	Length int // generated bars per symbol when Bars has no entry; 0 means none
}

// NewMockSource creates a mock that generates length bars for unknown symbols.
func NewMockSource(length int) *MockSource {
	return &MockSource{
		Bars:   map[string][]model.Bar{},
		Errs:   map[string]error{},
		Calls:  map[string]int{},
		Length: length,
	}
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) GetBars(_ context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	m.mu.Lock()
	m.Calls[symbol]++
	err := m.Errs[symbol]
	bars, ok := m.Bars[symbol]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		bars = GenerateBars(symbol, to, m.Length)
	}
	var out []model.Bar
	for _, b := range bars {
		if inRange(b, from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

// GenerateBars builds count deterministic daily bars ending at end. Each
// symbol gets its own drift and wave so rankings differ between symbols.
func GenerateBars(symbol string, end time.Time, count int) []model.Bar {
	var seed uint32
	for _, r := range symbol {
		seed = seed*31 + uint32(r)
	}
	base := 20 + float64(seed%180)
	drift := (float64(seed%21) - 8) * 0.0005
	phase := float64(seed % 17)

	end = truncateDay(end)
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		t := float64(i)
		p := base * math.Exp(drift*t) * (1 + 0.03*math.Sin((t+phase)/9))
		bars[i] = model.Bar{
			Date:     end.AddDate(0, 0, -(count - 1 - i)),
			Open:     p * 0.998,
			High:     p * 1.01,
			Low:      p * 0.99,
			Close:    p,
			AdjClose: p,
			Volume:   1_000_000 + int64(seed%5000)*100 + int64(i%10)*20_000,
		}
	}
	return bars
}

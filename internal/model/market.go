package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnorderedBars is returned when a bar sequence is not strictly ascending by date.
// It signals a caller bug, not a data-quality condition.
var ErrUnorderedBars = errors.New("bars must be strictly ascending by date")

// Bar represents one trading day for one symbol.
type Bar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	AdjClose float64
}

// Day truncates the bar date to its calendar day.
func (b Bar) Day() time.Time {
	y, m, d := b.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateBars checks that bars are strictly ascending by calendar day,
// which also rules out duplicate dates.
func ValidateBars(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1].Day(), bars[i].Day()
		if !cur.After(prev) {
			return fmt.Errorf("%w: index %d (%s) follows %s", ErrUnorderedBars, i,
				cur.Format(DateLayout), prev.Format(DateLayout))
		}
	}
	return nil
}

// DateLayout is the canonical day format used for keys and storage.
const DateLayout = "2006-01-02"

// Closes extracts the close prices.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high prices.
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low prices.
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts the volumes.
func Volumes(bars []Bar) []int64 {
	out := make([]int64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

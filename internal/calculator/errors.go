package calculator

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when an indicator's window requirement is unmet.
// It is an expected outcome, not a failure; check it with errors.Is.
var ErrInsufficientData = errors.New("insufficient data")

func insufficient(name string, have, need int) error {
	return fmt.Errorf("%s: %w (have %d, need %d)", name, ErrInsufficientData, have, need)
}

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%s: period must be positive, got %d", name, period)
	}
	return nil
}

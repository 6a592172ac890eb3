package signal

import (
	"context"
	"errors"
	"fmt"
	"math"

	"TrendScreener/internal/model"
)

// Features is the indicator vector handed to a strategy.
type Features = model.IndicatorSnapshot

// Decision is a strategy's discrete call plus its confidence.
type Decision struct {
	Value      model.SignalValue
	Confidence float64
	Source     model.SignalSource
}

// Strategy turns features into a decision.
type Strategy interface {
	Name() string
	Decide(ctx context.Context, symbol string, f Features) (Decision, error)
}

// Prediction is the raw output of a predictive model.
type Prediction struct {
	Signal     int
	Confidence float64
}

// Predictor is an optional external model. Initialize is called once; a
// failing Initialize keeps the engine on the rule path for its lifetime.
type Predictor interface {
	Initialize(ctx context.Context) error
	Predict(ctx context.Context, symbol string, f Features) (Prediction, error)
}

// ErrMalformedPrediction is returned for model output outside the allowed ranges.
var ErrMalformedPrediction = errors.New("malformed prediction")

func validate(p Prediction) error {
	if !model.SignalValue(p.Signal).Valid() {
		return fmt.Errorf("%w: signal %d", ErrMalformedPrediction, p.Signal)
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v", ErrMalformedPrediction, p.Confidence)
	}
	return nil
}

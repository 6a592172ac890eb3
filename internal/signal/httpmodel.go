package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// HTTPPredictor calls a model server that answers POST /predict with
// {"signal": -1|0|1, "confidence": 0..1}.
type HTTPPredictor struct {
	client *resty.Client
}

// NewHTTPPredictor creates a predictor for the model server at baseURL.
func NewHTTPPredictor(baseURL string, timeout time.Duration) *HTTPPredictor {
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")
	return &HTTPPredictor{client: client}
}

// Initialize checks GET /health.
func (p *HTTPPredictor) Initialize(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("model health: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("model health: status %d", resp.StatusCode())
	}
	return nil
}

type predictRequest struct {
	Symbol   string   `json:"symbol"`
	Features Features `json:"features"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, symbol string, f Features) (Prediction, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Symbol: symbol, Features: f}).
		Post("/predict")
	if err != nil {
		return Prediction{}, err
	}
	if resp.IsError() {
		return Prediction{}, fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String())
	}
	return parsePrediction(resp.Body())
}

func parsePrediction(body []byte) (Prediction, error) {
	if !gjson.ValidBytes(body) {
		return Prediction{}, fmt.Errorf("%w: invalid json", ErrMalformedPrediction)
	}
	sig := gjson.GetBytes(body, "signal")
	conf := gjson.GetBytes(body, "confidence")
	if sig.Type != gjson.Number || conf.Type != gjson.Number {
		return Prediction{}, fmt.Errorf("%w: missing signal or confidence", ErrMalformedPrediction)
	}
	if sig.Float() != float64(sig.Int()) {
		return Prediction{}, fmt.Errorf("%w: non-integer signal %s", ErrMalformedPrediction, sig.Raw)
	}
	return Prediction{Signal: int(sig.Int()), Confidence: conf.Float()}, nil
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

const (
	pathPredict           = "/api/ml/predict/event/%s"
	pathLatestPrediction  = "/api/ml/prediction/latest/%s"
	pathPredictionHistory = "/api/ml/prediction/history/%s"
	pathMLHealth          = "/api/ml/health"
	pathMLStats           = "/api/ml/stats"
)

// Prediction is a document returned by the ML endpoints. They answer 4xx
// as data rather than as failures, so Status must be checked.
type Prediction struct {
	Status int
	Body   json.RawMessage
}

// OK reports whether the service produced a result.
func (p *Prediction) OK() bool {
	return p.Status >= 200 && p.Status < 400
}

// Empty reports whether the body carries nothing.
func (p *Prediction) Empty() bool {
	b := bytes.TrimSpace(p.Body)
	return len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte("[]")) || bytes.Equal(b, []byte("{}"))
}

// String renders the document indented, or a short failure line.
func (p *Prediction) String() string {
	if !p.OK() {
		return fmt.Sprintf("Prediction failed: %d %s", p.Status, bytes.TrimSpace(p.Body))
	}
	var out bytes.Buffer
	if err := json.Indent(&out, p.Body, "", "  "); err != nil {
		return string(bytes.TrimSpace(p.Body))
	}
	return out.String()
}

// Predict asks the ML service for a fresh prediction for event id.
func (c *Client) Predict(ctx context.Context, id string) (*Prediction, error) {
	return c.mlForEvent(ctx, pathPredict, id)
}

// LatestPrediction returns the most recent stored prediction.
func (c *Client) LatestPrediction(ctx context.Context, id string) (*Prediction, error) {
	return c.mlForEvent(ctx, pathLatestPrediction, id)
}

// PredictionHistory returns every stored prediction for event id.
func (c *Client) PredictionHistory(ctx context.Context, id string) (*Prediction, error) {
	return c.mlForEvent(ctx, pathPredictionHistory, id)
}

// MLHealth reports the ML service health document.
func (c *Client) MLHealth(ctx context.Context) (*Prediction, error) {
	return c.ml(ctx, pathMLHealth)
}

// MLStats reports the ML service statistics.
func (c *Client) MLStats(ctx context.Context) (*Prediction, error) {
	return c.ml(ctx, pathMLStats)
}

func (c *Client) mlForEvent(ctx context.Context, format, id string) (*Prediction, error) {
	eid, err := escapeID(id)
	if err != nil {
		return nil, err
	}
	return c.ml(ctx, pathf(format, eid))
}

func (c *Client) ml(ctx context.Context, path string) (*Prediction, error) {
	resp, err := c.http.Get(ctx, path, transport.Options{Accept: transport.AcceptBelow500})
	if err != nil {
		return nil, apperr.Classify(err, MsgPredictionFailed)
	}
	if resp.Status >= 400 {
		c.logger.Debug("ml_request_rejected", "path", path, "status", resp.Status)
	}
	return &Prediction{Status: resp.Status, Body: json.RawMessage(resp.Data)}, nil
}

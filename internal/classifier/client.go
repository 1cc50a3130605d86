// Package classifier talks to the emotion classifier service and provides
// the reference rule-based classifier it serves.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verte-zerg/keymood/internal/model"
)

// PredictPath is the classifier route features are posted to.
const PredictPath = "/predict"

// RequestIDHeader carries the analysis ID on predict calls.
const RequestIDHeader = "X-Request-ID"

const maxResponseBytes = 1 << 20

// ErrUnavailable marks failures to obtain a usable classifier response.
var ErrUnavailable = errors.New("classifier unavailable")

// PredictRequest is the wire payload for the predict route.
type PredictRequest struct {
	Features *model.FeatureVector `json:"features"`
}

// Client posts feature vectors to a classifier service.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a client for the service at endpoint (scheme and host, optional prefix).
func NewClient(cfg model.ClassifierConfig) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("classifier endpoint is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Predict sends the features and decodes the label and confidence.
// Absent response fields are left nil.
func (c *Client) Predict(ctx context.Context, requestID string, fv model.FeatureVector) (model.Prediction, error) {
	body, err := json.Marshal(PredictRequest{Features: &fv})
	if err != nil {
		return model.Prediction{}, fmt.Errorf("failed to encode features: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+PredictPath, bytes.NewReader(body))
	if err != nil {
		return model.Prediction{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.Prediction{}, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Prediction{}, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}
	var pred model.Prediction
	if err := json.Unmarshal(data, &pred); err != nil {
		return model.Prediction{}, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	return pred, nil
}

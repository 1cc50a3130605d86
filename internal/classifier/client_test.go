package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/verte-zerg/keymood/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(model.ClassifierConfig{Endpoint: srv.URL + "/", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestPredictSendsFeatures(t *testing.T) {
	var gotPath, gotType, gotID string
	var payload map[string]map[string]float64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotID = r.Header.Get(RequestIDHeader)
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_, _ = io.WriteString(w, `{"emotion":"Happy","confidence":0.75}`)
	})

	fv := model.FeatureVector{TypingSpeedWPM: 50, AvgKeyIntervalMs: 120, AvgPauseMs: 310, NumKeyEvents: 8}
	pred, err := client.Predict(context.Background(), "req-1", fv)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if gotPath != PredictPath {
		t.Fatalf("expected path %s, got %s", PredictPath, gotPath)
	}
	if gotType != "application/json" {
		t.Fatalf("unexpected content type %q", gotType)
	}
	if gotID != "req-1" {
		t.Fatalf("expected request id header, got %q", gotID)
	}
	features := payload["features"]
	if features["typing_speed_wpm"] != 50 || features["avg_key_interval_ms"] != 120 ||
		features["avg_pause_ms"] != 310 || features["num_key_events"] != 8 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if pred.EmotionLabel() != "Happy" || pred.ConfidenceLabel() != "75.00%" {
		t.Fatalf("unexpected prediction: %s %s", pred.EmotionLabel(), pred.ConfidenceLabel())
	}
}

func TestPredictMissingFieldsAreNotAvailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	pred, err := client.Predict(context.Background(), "", model.FeatureVector{})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.EmotionLabel() != model.NotAvailable || pred.ConfidenceLabel() != model.NotAvailable {
		t.Fatalf("expected N/A labels, got %s %s", pred.EmotionLabel(), pred.ConfidenceLabel())
	}
}

func TestPredictMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	})
	if _, err := client.Predict(context.Background(), "", model.FeatureVector{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPredictErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"No features received"}`)
	})
	if _, err := client.Predict(context.Background(), "", model.FeatureVector{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPredictUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client, err := NewClient(model.ClassifierConfig{Endpoint: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Predict(context.Background(), "", model.FeatureVector{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewClientRejectsEmptyEndpoint(t *testing.T) {
	if _, err := NewClient(model.ClassifierConfig{Endpoint: "  "}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}

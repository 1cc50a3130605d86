package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verte-zerg/keymood/internal/classifier"
	"github.com/verte-zerg/keymood/internal/features"
	"github.com/verte-zerg/keymood/internal/model"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewRouter(logger))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestPredictRequiresFeatures(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []string{`{}`, `not json`} {
		resp, data := post(t, srv.URL+"/predict", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, resp.StatusCode)
		}
		if !strings.Contains(string(data), "No features received") {
			t.Fatalf("%s: unexpected body %s", body, data)
		}
	}
}

func TestPredictClassifies(t *testing.T) {
	srv := newTestServer(t)
	resp, data := post(t, srv.URL+"/predict",
		`{"features":{"typing_speed_wpm":60,"avg_key_interval_ms":100,"avg_pause_ms":320,"num_key_events":42.0}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, data)
	}
	var pred model.Prediction
	if err := json.Unmarshal(data, &pred); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pred.EmotionLabel() != classifier.Happy || pred.ConfidenceLabel() != "100.00%" {
		t.Fatalf("unexpected prediction: %s", data)
	}
}

func TestPredictDefaultsMissingFields(t *testing.T) {
	srv := newTestServer(t)
	resp, data := post(t, srv.URL+"/predict", `{"features":{}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	// wpm 0 falls into the slow bucket.
	if !strings.Contains(string(data), classifier.Sad) {
		t.Fatalf("unexpected prediction: %s", data)
	}
}

func TestClientAgainstServer(t *testing.T) {
	srv := newTestServer(t)
	client, err := classifier.NewClient(model.ClassifierConfig{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	fv := model.FeatureVector{TypingSpeedWPM: 35, AvgKeyIntervalMs: 150, AvgPauseMs: 400, NumKeyEvents: 10}
	pred, err := client.Predict(t.Context(), "abc", fv)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.EmotionLabel() != classifier.Calm {
		t.Fatalf("expected Calm, got %s", pred.EmotionLabel())
	}
}

func TestAnalyzeMatchesExtract(t *testing.T) {
	srv := newTestServer(t)
	events := []model.KeyEvent{
		{Kind: model.KeyPress, Key: "h", TimeMs: 0},
		{Kind: model.KeyRelease, Key: "h", TimeMs: 50},
		{Kind: model.KeyPress, Key: "i", TimeMs: 400},
		{Kind: model.KeyRelease, Key: "i", TimeMs: 450},
	}
	payload, err := json.Marshal(map[string]any{"events": events, "text": "hi there"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	resp, err := http.Post(srv.URL+"/analyze", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want, err := features.Extract(events, "hi there")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out.Features != want {
		t.Fatalf("expected %+v, got %+v", want, out.Features)
	}
	if out.Emotion == nil || out.Confidence == nil {
		t.Fatalf("expected a prediction, got %+v", out)
	}
}

func TestAnalyzeRejectsEmptyLog(t *testing.T) {
	srv := newTestServer(t)
	resp, data := post(t, srv.URL+"/analyze", `{"events":[],"text":"hello"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(data), "type something first") {
		t.Fatalf("unexpected body: %s", data)
	}
}

func TestHealthcheck(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthcheck")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAnalyzeRejectsNonFiniteFeatures(t *testing.T) {
	srv := newTestServer(t)
	bodies := []string{
		`{"events":[{"kind":"press","key":"a","time_ms":0},{"kind":"release","key":"a","time_ms":1e-310}],"text":"a b"}`,
		`{"events":[{"kind":"press","key":"a","time_ms":-1e308},{"kind":"release","key":"a","time_ms":1e308}],"text":"a b"}`,
	}
	for _, body := range bodies {
		resp, data := post(t, srv.URL+"/analyze", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", resp.StatusCode, data)
		}
		var errBody map[string]string
		if err := json.Unmarshal(data, &errBody); err != nil || errBody["error"] == "" {
			t.Fatalf("expected JSON error body, got %s", data)
		}
	}
}

func TestAnalyzeRejectsUnknownKinds(t *testing.T) {
	srv := newTestServer(t)
	for _, kind := range []string{"", "hold"} {
		body := `{"events":[{"kind":"press","key":"a","time_ms":0},{"kind":"` + kind + `","key":"a","time_ms":50}],"text":"a"}`
		resp, data := post(t, srv.URL+"/analyze", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("kind %q: expected 400, got %d: %s", kind, resp.StatusCode, data)
		}
		if !strings.Contains(string(data), "Unknown event kind") {
			t.Fatalf("kind %q: unexpected body %s", kind, data)
		}
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, map[string]float64{"wpm": math.Inf(1)})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var errBody map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &errBody); err != nil || errBody["error"] == "" {
		t.Fatalf("expected JSON error body, got %s", rr.Body.String())
	}
}

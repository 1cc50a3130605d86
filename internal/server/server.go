// Package server exposes the reference classifier over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/verte-zerg/keymood/internal/classifier"
	"github.com/verte-zerg/keymood/internal/features"
	"github.com/verte-zerg/keymood/internal/model"
)

const maxBodyBytes = 4 << 20

// wireFeatures accepts numeric features from any client; absent keys are zero.
type wireFeatures struct {
	TypingSpeedWPM   float64 `json:"typing_speed_wpm"`
	AvgKeyIntervalMs float64 `json:"avg_key_interval_ms"`
	AvgPauseMs       float64 `json:"avg_pause_ms"`
	NumKeyEvents     float64 `json:"num_key_events"`
}

type predictBody struct {
	Features *wireFeatures `json:"features"`
}

type analyzeBody struct {
	Events []model.KeyEvent `json:"events"`
	Text   string           `json:"text"`
}

// AnalyzeResponse is returned by the analyze route.
type AnalyzeResponse struct {
	Features   model.FeatureVector `json:"features"`
	Emotion    *string             `json:"emotion,omitempty"`
	Confidence *float64            `json:"confidence,omitempty"`
}

// NewRouter wires the classifier routes.
func NewRouter(logger *slog.Logger) *mux.Router {
	h := &handlers{logger: logger}
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.HandleFunc(classifier.PredictPath, h.predict).Methods(http.MethodPost)
	r.HandleFunc("/analyze", h.analyze).Methods(http.MethodPost)
	r.HandleFunc("/healthcheck", h.healthcheck).Methods(http.MethodGet)
	return r
}

type handlers struct {
	logger *slog.Logger
}

func (h *handlers) predict(w http.ResponseWriter, r *http.Request) {
	var body predictBody
	if err := decodeBody(w, r, &body); err != nil || body.Features == nil {
		writeError(w, http.StatusBadRequest, "No features received")
		return
	}
	fv := model.FeatureVector{
		TypingSpeedWPM:   body.Features.TypingSpeedWPM,
		AvgKeyIntervalMs: body.Features.AvgKeyIntervalMs,
		AvgPauseMs:       body.Features.AvgPauseMs,
		NumKeyEvents:     int(body.Features.NumKeyEvents),
	}
	pred := classifier.Classify(fv)
	h.logger.Debug("predicted",
		"request_id", r.Header.Get(classifier.RequestIDHeader),
		"emotion", pred.EmotionLabel(),
		"confidence", pred.ConfidenceLabel(),
	)
	writeJSON(w, http.StatusOK, pred)
}

func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	for _, ev := range body.Events {
		if !ev.Kind.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown event kind %q", ev.Kind))
			return
		}
	}
	fv, err := features.Extract(body.Events, body.Text)
	switch {
	case errors.Is(err, features.ErrEmptySession):
		writeError(w, http.StatusBadRequest, "Please type something first.")
		return
	case errors.Is(err, features.ErrNonFinite):
		writeError(w, http.StatusBadRequest, "Event timestamps are out of range")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to extract features")
		return
	}
	pred := classifier.Classify(fv)
	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Features:   fv,
		Emotion:    pred.Emotion,
		Confidence: pred.Confidence,
	})
}

func (h *handlers) healthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes before writing the header so encoding failures become a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		buf.WriteString(`{"error":"Failed to encode response"}` + "\n")
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Best-effort response write.
		_ = err
	}
}

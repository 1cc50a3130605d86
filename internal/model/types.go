// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// KeyKind distinguishes key-down from key-up transitions.
type KeyKind string

const (
	KeyPress   KeyKind = "press"
	KeyRelease KeyKind = "release"
)

// Valid reports whether k is a known transition.
func (k KeyKind) Valid() bool {
	return k == KeyPress || k == KeyRelease
}

// KeyEvent is one observed key transition. TimeMs comes from a single
// monotonic clock for the whole session.
type KeyEvent struct {
	Kind   KeyKind `json:"kind"`
	Key    string  `json:"key"`
	TimeMs float64 `json:"time_ms"`
}

// FeatureVector is the typing-dynamics summary sent to the classifier.
type FeatureVector struct {
	TypingSpeedWPM   float64 `json:"typing_speed_wpm"`
	AvgKeyIntervalMs float64 `json:"avg_key_interval_ms"`
	AvgPauseMs       float64 `json:"avg_pause_ms"`
	NumKeyEvents     int     `json:"num_key_events"`
}

// NotAvailable is displayed in place of values the classifier did not return.
const NotAvailable = "N/A"

// Prediction is the classifier response. Either field may be absent.
type Prediction struct {
	Emotion    *string  `json:"emotion,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// EmotionLabel returns the label or NotAvailable.
func (p Prediction) EmotionLabel() string {
	if p.Emotion == nil || *p.Emotion == "" {
		return NotAvailable
	}
	return *p.Emotion
}

// ConfidenceLabel renders confidence as a percentage or NotAvailable.
func (p Prediction) ConfidenceLabel() string {
	if p.Confidence == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f%%", *p.Confidence*100)
}

// ClassifierConfig defines how to reach the classifier service.
type ClassifierConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// AnalysisRecord is a stored analyze outcome. Raw key events are never part of it.
type AnalysisRecord struct {
	ID         int64
	AnalysisID string
	CreatedAt  time.Time
	Words      int
	Features   FeatureVector
	Prediction Prediction
}

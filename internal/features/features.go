// Package features derives typing-dynamics features from a key event log.
package features

import (
	"errors"
	"math"
	"strings"

	"github.com/verte-zerg/keymood/internal/model"
)

// PauseThreshold is the press-to-press gap, in milliseconds, that must be
// exceeded for the gap to count as a pause.
const PauseThreshold = 300.0

const msPerMinute = 60000.0

// ErrEmptySession is returned when there are no events to extract from.
var ErrEmptySession = errors.New("no key events recorded")

// ErrNonFinite is returned when timestamps overflow the feature arithmetic.
var ErrNonFinite = errors.New("key event timestamps produce non-finite features")

// Extract computes the feature vector for an event log and the text it produced.
func Extract(events []model.KeyEvent, text string) (model.FeatureVector, error) {
	if len(events) == 0 {
		return model.FeatureVector{}, ErrEmptySession
	}

	var pressTimes []float64
	var intervals []float64
	for i, ev := range events {
		if ev.Kind == model.KeyPress {
			pressTimes = append(pressTimes, ev.TimeMs)
		}
		if i == 0 {
			continue
		}
		// Zero and negative gaps are dropped.
		if diff := ev.TimeMs - events[i-1].TimeMs; diff > 0 {
			intervals = append(intervals, diff)
		}
	}

	var pauses []float64
	for i := 1; i < len(pressTimes); i++ {
		if diff := pressTimes[i] - pressTimes[i-1]; diff > PauseThreshold {
			pauses = append(pauses, diff)
		}
	}

	elapsedMinutes := (events[len(events)-1].TimeMs - events[0].TimeMs) / msPerMinute
	wpm := 0.0
	if elapsedMinutes > 0 {
		wpm = float64(CountWords(text)) / elapsedMinutes
	}

	fv := model.FeatureVector{
		TypingSpeedWPM:   wpm,
		AvgKeyIntervalMs: mean(intervals),
		AvgPauseMs:       mean(pauses),
		NumKeyEvents:     len(events),
	}
	for _, v := range []float64{fv.TypingSpeedWPM, fv.AvgKeyIntervalMs, fv.AvgPauseMs} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.FeatureVector{}, ErrNonFinite
		}
	}
	return fv, nil
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

package classifier

import "github.com/verte-zerg/keymood/internal/model"

// Emotion labels produced by Classify, in tie-break order.
const (
	Happy    = "Happy"
	Sad      = "Sad"
	Calm     = "Calm"
	Stressed = "Stressed"
)

var labels = []string{Happy, Sad, Calm, Stressed}

// Classify scores the features with fixed typing-dynamics rules and returns the
// best label with its normalized score. When no rule fires the result is Calm at 1.0.
func Classify(fv model.FeatureVector) model.Prediction {
	wpm := fv.TypingSpeedWPM
	interval := fv.AvgKeyIntervalMs
	pause := fv.AvgPauseMs

	scores := map[string]float64{}

	switch {
	case wpm > 45 && interval < 130 && pause < 350:
		scores[Happy] = 0.9
	case wpm > 40:
		scores[Happy] = 0.6
	}

	switch {
	case wpm < 25 && pause > 800:
		scores[Sad] = 0.9
	case wpm < 28:
		scores[Sad] = 0.6
	}

	switch {
	case wpm > 45 && (interval > 200 || pause > 700):
		scores[Stressed] = 0.9
	case interval > 220:
		scores[Stressed] = 0.6
	}

	switch {
	case wpm >= 28 && wpm <= 40 && interval >= 120 && interval <= 180 && pause < 600:
		scores[Calm] = 0.9
	case wpm >= 28 && wpm <= 42:
		scores[Calm] = 0.6
	}

	var total float64
	for _, s := range scores {
		total += s
	}
	if total == 0 {
		return prediction(Calm, 1.0)
	}

	best := ""
	bestScore := -1.0
	for _, label := range labels {
		if s := scores[label] / total; s > bestScore {
			best = label
			bestScore = s
		}
	}
	return prediction(best, bestScore)
}

func prediction(label string, confidence float64) model.Prediction {
	return model.Prediction{Emotion: &label, Confidence: &confidence}
}

// Package stats renders feature vectors and analysis history as text tables.
package stats

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/verte-zerg/keymood/internal/model"
)

const (
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

// FormatFeature renders a feature value the way results are displayed.
func FormatFeature(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// RenderFeatures prints the local features and the classifier outcome.
func RenderFeatures(w io.Writer, fv model.FeatureVector, pred model.Prediction) error {
	rows := [][]string{
		{"Emotion", pred.EmotionLabel()},
		{"Confidence", pred.ConfidenceLabel()},
		{"Typing speed (WPM)", FormatFeature(fv.TypingSpeedWPM)},
		{"Avg key interval (ms)", FormatFeature(fv.AvgKeyIntervalMs)},
		{"Avg pause (ms)", FormatFeature(fv.AvgPauseMs)},
		{"Key events", fmt.Sprintf("%d", fv.NumKeyEvents)},
	}
	for _, line := range formatTable(nil, rows, map[int]bool{1: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderHistory prints stored analyses, one per row.
func RenderHistory(w io.Writer, records []model.AnalysisRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No analyses found.")
		return err
	}
	headers := []string{"When", "Emotion", "Confidence", "WPM", "Interval (ms)", "Pause (ms)", "Events", "Words"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Prediction.EmotionLabel(),
			rec.Prediction.ConfidenceLabel(),
			FormatFeature(rec.Features.TypingSpeedWPM),
			FormatFeature(rec.Features.AvgKeyIntervalMs),
			FormatFeature(rec.Features.AvgPauseMs),
			fmt.Sprintf("%d", rec.Features.NumKeyEvents),
			fmt.Sprintf("%d", rec.Words),
		})
	}
	rightAlign := map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true, 7: true}
	lines := formatTable(headers, rows, rightAlign)
	for i, line := range lines {
		if i == 0 && isTerminal(w) {
			line = ansiBold + line + ansiReset
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/verte-zerg/keymood/internal/model"
)

// ReadEvents decodes a JSON Lines event log, one KeyEvent per line.
// Blank lines are skipped; unknown kinds are rejected.
func ReadEvents(r io.Reader) ([]model.KeyEvent, error) {
	var events []model.KeyEvent
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev model.KeyEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ev.Kind.Valid() {
			return nil, fmt.Errorf("line %d: unknown event kind %q", lineNo, ev.Kind)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// LoadEvents reads an event log file.
func LoadEvents(path string) ([]model.KeyEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only event log.
			_ = cerr
		}
	}()
	return ReadEvents(file)
}

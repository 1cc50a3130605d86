// Package store handles SQLite persistence of analysis results.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/keymood/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// createdAtLayout is fixed width so created_at sorts correctly as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for analysis history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id INTEGER PRIMARY KEY,
			analysis_id TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			words INTEGER NOT NULL,
			typing_speed_wpm REAL NOT NULL,
			avg_key_interval_ms REAL NOT NULL,
			avg_pause_ms REAL NOT NULL,
			num_key_events INTEGER NOT NULL,
			emotion TEXT,
			confidence REAL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAnalysis stores one analyze outcome.
func (s *Store) InsertAnalysis(ctx context.Context, rec model.AnalysisRecord) (int64, error) {
	var emotion sql.NullString
	if rec.Prediction.Emotion != nil {
		emotion = sql.NullString{String: *rec.Prediction.Emotion, Valid: true}
	}
	var confidence sql.NullFloat64
	if rec.Prediction.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *rec.Prediction.Confidence, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (analysis_id, created_at, words, typing_speed_wpm, avg_key_interval_ms, avg_pause_ms, num_key_events, emotion, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AnalysisID,
		rec.CreatedAt.UTC().Format(createdAtLayout),
		rec.Words,
		rec.Features.TypingSpeedWPM,
		rec.Features.AvgKeyIntervalMs,
		rec.Features.AvgPauseMs,
		rec.Features.NumKeyEvents,
		emotion,
		confidence,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAnalyses returns the most recent analyses, oldest first. limit <= 0 returns all.
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, analysis_id, created_at, words, typing_speed_wpm, avg_key_interval_ms, avg_pause_ms, num_key_events, emotion, confidence
		FROM (
			SELECT * FROM analyses ORDER BY created_at DESC, id DESC LIMIT ?
		)
		ORDER BY created_at ASC, id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.AnalysisRecord
	for rows.Next() {
		var rec model.AnalysisRecord
		var createdAt string
		var emotion sql.NullString
		var confidence sql.NullFloat64
		if err := rows.Scan(
			&rec.ID,
			&rec.AnalysisID,
			&createdAt,
			&rec.Words,
			&rec.Features.TypingSpeedWPM,
			&rec.Features.AvgKeyIntervalMs,
			&rec.Features.AvgPauseMs,
			&rec.Features.NumKeyEvents,
			&emotion,
			&confidence,
		); err != nil {
			return nil, err
		}
		parsed, err := parseCreatedAt(createdAt)
		if err != nil {
			return nil, err
		}
		rec.CreatedAt = parsed
		if emotion.Valid {
			label := emotion.String
			rec.Prediction.Emotion = &label
		}
		if confidence.Valid {
			conf := confidence.Float64
			rec.Prediction.Confidence = &conf
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// parseCreatedAt also accepts rows written with the older trimmed RFC3339Nano layout.
func parseCreatedAt(value string) (time.Time, error) {
	if parsed, err := time.Parse(createdAtLayout, value); err == nil {
		return parsed, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

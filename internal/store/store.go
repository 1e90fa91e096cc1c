// Package store persists settings and acquired tide targets in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tide_events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	kind         TEXT NOT NULL,
	tide_time    TEXT NOT NULL,
	acquired_at  TEXT NOT NULL,
	missed_cycle BOOLEAN NOT NULL DEFAULT FALSE,
	quick_steps  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS tide_events_acquired ON tide_events (acquired_at);
`

// TideRecord is one target the clock acquired.
type TideRecord struct {
	Kind        tideclock.Kind `json:"kind"`
	Time        time.Time      `json:"time"`
	AcquiredAt  time.Time      `json:"acquired_at"`
	MissedCycle bool           `json:"missed_cycle"`
	QuickSteps  int            `json:"quick_steps"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Settings returns every persisted setting.
func (s *Store) Settings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return settings, nil
}

// SaveSettings upserts the given settings in one transaction.
func (s *Store) SaveSettings(settings map[string]string, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range settings {
		_, err = tx.Exec(`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

// RecordTide appends an acquired target.
func (s *Store) RecordTide(rec TideRecord) error {
	_, err := s.db.Exec(`INSERT INTO tide_events (kind, tide_time, acquired_at, missed_cycle, quick_steps) VALUES (?, ?, ?, ?, ?)`,
		string(rec.Kind), rec.Time.UTC().Format(time.RFC3339), rec.AcquiredAt.UTC().Format(time.RFC3339), rec.MissedCycle, rec.QuickSteps)
	if err != nil {
		return fmt.Errorf("failed to record tide: %w", err)
	}
	return nil
}

// RecentTides returns up to limit records, newest first.
func (s *Store) RecentTides(limit int) ([]TideRecord, error) {
	rows, err := s.db.Query(`SELECT kind, tide_time, acquired_at, missed_cycle, quick_steps
		FROM tide_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tides: %w", err)
	}
	defer rows.Close()

	var records []TideRecord
	for rows.Next() {
		var (
			rec                  TideRecord
			kind, tide, acquired string
		)
		if err := rows.Scan(&kind, &tide, &acquired, &rec.MissedCycle, &rec.QuickSteps); err != nil {
			return nil, fmt.Errorf("failed to scan tide: %w", err)
		}
		rec.Kind = tideclock.Kind(kind)
		if rec.Time, err = time.Parse(time.RFC3339, tide); err != nil {
			return nil, fmt.Errorf("failed to parse tide time %q: %w", tide, err)
		}
		if rec.AcquiredAt, err = time.Parse(time.RFC3339, acquired); err != nil {
			return nil, fmt.Errorf("failed to parse acquired time %q: %w", acquired, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tides: %w", err)
	}
	return records, nil
}

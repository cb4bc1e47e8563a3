// Package history persists per-event processing outcomes to SQLite.
package history

import (
	"database/sql"
	"fmt"
	"time"
)

// Outcome is the terminal state an event reached.
type Outcome string

const (
	OutcomeSkipped          Outcome = "skipped"
	OutcomeDeletionRecorded Outcome = "deletion-recorded"
	OutcomeReconciled       Outcome = "reconciled"
	OutcomeResolutionFailed Outcome = "resolution-failed"
	OutcomeFailed           Outcome = "failed"
)

// Schema creates the history table. Applied at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source      TEXT NOT NULL,
	event_kind  TEXT NOT NULL,
	media_id    INTEGER NOT NULL,
	title       TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMP NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_history_occurred_at ON history(occurred_at);
`

// Record is one processed event.
type Record struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	EventKind  string    `json:"event_kind"`
	MediaID    int64     `json:"media_id"`
	Title      string    `json:"title"`
	Outcome    Outcome   `json:"outcome"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Store writes and queries processing history.
type Store struct {
	db *sql.DB
}

// NewStore creates a history store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init applies the schema.
func (s *Store) Init() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("apply history schema: %w", err)
	}
	return nil
}

// Append persists a record and returns its ID.
func (s *Store) Append(r *Record) (int64, error) {
	if r.OccurredAt.IsZero() {
		r.OccurredAt = time.Now()
	}
	result, err := s.db.Exec(`
		INSERT INTO history (source, event_kind, media_id, title, outcome, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Source, r.EventKind, r.MediaID, r.Title, r.Outcome, r.Detail, r.OccurredAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert history: %w", err)
	}
	return result.LastInsertId()
}

// Recent returns the latest n records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, source, event_kind, media_id, title, outcome, detail, occurred_at
		FROM history
		ORDER BY id DESC
		LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Source, &r.EventKind, &r.MediaID, &r.Title, &r.Outcome, &r.Detail, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune removes records older than the given duration.
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := s.db.Exec(`DELETE FROM history WHERE occurred_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return result.RowsAffected()
}

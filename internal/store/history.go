// Package store persists terminal verdicts so past investigations can be
// listed. Sessions themselves are never persisted; a row is written only
// after the stream has delivered its result.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"veritas/internal/logging"
	"veritas/internal/swarm"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS verdicts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	claim       TEXT NOT NULL,
	verdict     TEXT NOT NULL,
	confidence  INTEGER NOT NULL,
	summary     TEXT NOT NULL,
	sources     TEXT NOT NULL,
	is_video    INTEGER NOT NULL,
	auto_claim  TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_verdicts_created_at ON verdicts(created_at);
`

// Entry is one recorded investigation.
type Entry struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Claim      string    `json:"claim"`
	Verdict    string    `json:"verdict"`
	Confidence int       `json:"confidence_score"`
	Summary    string    `json:"summary"`
	IsVideo    bool      `json:"is_video"`
	AutoClaim  string    `json:"auto_claim"`
	CreatedAt  time.Time `json:"created_at"`
}

// History is a sqlite-backed verdict log. Implements swarm.Recorder.
type History struct {
	db *sql.DB
}

// Open opens (and migrates) the history database at path.
func Open(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &History{db: db}, nil
}

// Record stores one terminal result. Called by the orchestrator after the
// result event has been emitted; failures are logged, never surfaced.
func (h *History) Record(sessionID, claim string, result swarm.FinalResult) {
	sources, err := json.Marshal(result.Verdict.Sources)
	if err != nil {
		sources = []byte("[]")
	}

	_, err = h.db.Exec(
		`INSERT INTO verdicts (session_id, claim, verdict, confidence, summary, sources, is_video, auto_claim)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, claim, string(result.Verdict.Verdict), result.Verdict.Confidence,
		result.Verdict.Summary, string(sources), result.IsVideo, result.AutoClaim,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warnw("failed to record verdict", "session", sessionID, "err", err)
	}
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := h.db.Query(
		`SELECT id, session_id, claim, verdict, confidence, summary, is_video, auto_claim, created_at
		 FROM verdicts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Claim, &e.Verdict, &e.Confidence,
			&e.Summary, &e.IsVideo, &e.AutoClaim, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verdict row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

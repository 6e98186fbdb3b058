package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists snapshots to a single-file SQLite database, using
// the pure-Go modernc.org/sqlite driver so embedders need no cgo toolchain.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path and
// ensures its schema exists. path may be ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrateSQLite(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_snapshots (
			instance_id TEXT PRIMARY KEY,
			payload     TEXT NOT NULL,
			updated_at  INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("store: migrate sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, instanceID string, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: marshal snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_snapshots (instance_id, payload, updated_at)
		VALUES (?, ?, unixepoch())
		ON CONFLICT(instance_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, instanceID, string(payload))
	if err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, instanceID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM workflow_snapshots WHERE instance_id = ?`, instanceID).Scan(&payload)
	if err == sql.ErrNoRows {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: load snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("store: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workflow_snapshots WHERE instance_id = ?`, instanceID); err != nil {
		return fmt.Errorf("store: delete snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

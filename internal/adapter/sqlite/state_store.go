// Package sqlite persists agent state in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pgherd/internal/converge"

	_ "modernc.org/sqlite"
)

var _ converge.StateStore = (*StateStore)(nil)

// StateStore records the last applied configuration so agent restarts can
// skip reloads for content that already reached the supervisor.
type StateStore struct {
	db *sql.DB
}

// Open creates or opens the state database at path.
func Open(path string) (*StateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set state db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set state db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS applied_configs (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL,
	digest TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize applied config schema: %w", err)
	}

	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *StateStore) LastApplied(ctx context.Context) (converge.AppliedConfig, bool, error) {
	var (
		version   int64
		digest    string
		appliedAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT version, digest, applied_at FROM applied_configs WHERE id = 1`).
		Scan(&version, &digest, &appliedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return converge.AppliedConfig{}, false, nil
		}
		return converge.AppliedConfig{}, false, fmt.Errorf("query applied config: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, appliedAt)
	if err != nil {
		return converge.AppliedConfig{}, false, fmt.Errorf("parse applied_at %q: %w", appliedAt, err)
	}
	return converge.AppliedConfig{Version: uint64(version), Digest: digest, AppliedAt: at}, true, nil
}

func (s *StateStore) RecordApplied(ctx context.Context, applied converge.AppliedConfig) error {
	at := applied.AppliedAt
	if at.IsZero() {
		at = time.Now()
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO applied_configs (id, version, digest, applied_at) VALUES (1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	version = excluded.version,
	digest = excluded.digest,
	applied_at = excluded.applied_at`,
		int64(applied.Version),
		applied.Digest,
		at.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("record applied config version %d: %w", applied.Version, err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lizgehret/q2-fmt/internal/domain/types"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore is a Store persisted to a single SQLite table, one JSON
// payload per run. Reads are served from an in-memory copy loaded on open.
type SQLiteStore struct {
	*MemoryStore
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// OpenSQLite opens or creates the registry database at path.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS runs (
		job_id  TEXT PRIMARY KEY,
		outcome TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	s := &SQLiteStore{MemoryStore: NewMemoryStore(opts...), db: db, path: path}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT job_id, payload FROM runs`)
	if err != nil {
		return fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		var r types.RunReport
		if err := json.Unmarshal(payload, &r); err != nil {
			return fmt.Errorf("decode run %s: %w", id, err)
		}
		if err := s.MemoryStore.Put(ctx, r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Put implements Store.Put. The row is written before the in-memory copy
// so a failed insert leaves both unchanged.
func (s *SQLiteStore) Put(ctx context.Context, r types.RunReport) error { //nolint:gocritic // hugeParam: stored by value
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(r.JobID) == "" {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.MemoryStore.Get(ctx, r.JobID); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.JobID)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", r.JobID, err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO runs(job_id, outcome, payload) VALUES(?, ?, ?)`,
		r.JobID, r.Outcome, payload); err != nil {
		return fmt.Errorf("insert run %s: %w", r.JobID, err)
	}
	return s.MemoryStore.Put(ctx, r)
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Path returns the database path.
func (s *SQLiteStore) Path() string { return s.path }

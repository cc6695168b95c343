// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists per-entry acquisition outcomes across runs in a
// SQLite database, so earlier failures can be reviewed and retried.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bibfetch/pkg/types"
)

// DefaultPath is the ledger location relative to the output directory.
const DefaultPath = ".bibfetch/ledger.db"

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the ledger database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between the recorder and readers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			overwrite INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			written INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			key TEXT NOT NULL,
			state TEXT NOT NULL,
			source TEXT,
			url TEXT,
			path TEXT,
			reason TEXT,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_key ON outcomes(key)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	Source    string
	OutputDir string
	Overwrite bool
}

// Run records the outcomes of one acquisition run. It satisfies
// acquire.Recorder.
type Run struct {
	ID    string
	store *Store
}

// BeginRun inserts a run row and returns a handle for recording outcomes.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (*Run, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, output_dir, overwrite, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, info.Source, info.OutputDir, info.Overwrite, s.now().UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return &Run{ID: id, store: s}, nil
}

// Record stores the terminal status of one entry.
func (r *Run) Record(ctx context.Context, st types.Status) error {
	var source, url string
	if st.State == types.StateWritten {
		source, url = st.Source.String(), st.URL
	}
	_, err := r.store.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, key, state, source, url, path, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, st.Key, st.State.String(), source, url, st.Path, st.Reason,
		r.store.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("recording %s: %w", st.Key, err)
	}
	return nil
}

// Finish stamps the run with its end time and totals.
func (r *Run) Finish(ctx context.Context, written, skipped, failed int) error {
	_, err := r.store.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, written = ?, skipped = ?, failed = ? WHERE id = ?`,
		r.store.now().UTC().Format(timeLayout), written, skipped, failed, r.ID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", r.ID, err)
	}
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const defaultLimit = 20

// Outcome is one recorded entry status.
type Outcome struct {
	RunID      string    `yaml:"run_id"`
	Key        string    `yaml:"key"`
	State      string    `yaml:"state"`
	Source     string    `yaml:"source,omitempty"`
	URL        string    `yaml:"url,omitempty"`
	Path       string    `yaml:"path,omitempty"`
	Reason     string    `yaml:"reason,omitempty"`
	RecordedAt time.Time `yaml:"recorded_at"`
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID         string     `yaml:"id"`
	Source     string     `yaml:"source"`
	OutputDir  string     `yaml:"output_dir"`
	Overwrite  bool       `yaml:"overwrite"`
	StartedAt  time.Time  `yaml:"started_at"`
	FinishedAt *time.Time `yaml:"finished_at,omitempty"`
	Written    int        `yaml:"written"`
	Skipped    int        `yaml:"skipped"`
	Failed     int        `yaml:"failed"`
}

// HistoryOptions filters outcome queries.
type HistoryOptions struct {
	// Key restricts results to one citation key.
	Key string

	// State restricts results to one state name, e.g. "failed".
	State string

	// Limit caps the result count. Zero uses the default.
	Limit int
}

// History returns recorded outcomes, newest first.
func (s *Store) History(ctx context.Context, opts HistoryOptions) ([]Outcome, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT run_id, key, state, source, url, path, reason, recorded_at
		FROM outcomes WHERE 1=1`)
	if opts.Key != "" {
		qb.WriteString(` AND key = ?`)
		args = append(args, opts.Key)
	}
	if opts.State != "" {
		qb.WriteString(` AND state = ?`)
		args = append(args, opts.State)
	}
	qb.WriteString(` ORDER BY rowid DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o                         Outcome
			source, url, path, reason sql.NullString
			recorded                  string
		)
		if err := rows.Scan(&o.RunID, &o.Key, &o.State, &source, &url, &path, &reason, &recorded); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.Source, o.URL, o.Path, o.Reason = source.String, url.String, path.String, reason.String
		o.RecordedAt, _ = time.Parse(timeLayout, recorded)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, output_dir, overwrite, started_at, finished_at, written, skipped, failed
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r        RunSummary
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.OutputDir, &r.Overwrite, &started, &finished,
			&r.Written, &r.Skipped, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		if finished.Valid {
			if t, err := time.Parse(timeLayout, finished.String); err == nil {
				r.FinishedAt = &t
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FailedKeys returns the keys whose most recent outcome is a failure.
func (s *Store) FailedKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.key FROM outcomes o
		JOIN (SELECT key, MAX(rowid) AS last FROM outcomes GROUP BY key) l
			ON o.key = l.key AND o.rowid = l.last
		WHERE o.state = 'failed'
		ORDER BY o.key`)
	if err != nil {
		return nil, fmt.Errorf("querying failed keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

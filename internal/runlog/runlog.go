// Package runlog keeps the durable ledger of integration runs: one row
// per run with its token, configuration fingerprint, completion status
// and efficiency statistic. Backed by SQLite in WAL mode so a reporting
// query can run while a simulation is appending.
package runlog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Record is one completed (or aborted) integration run.
type Record struct {
	Token          string
	ConfigName     string
	ConfigHash     string
	Scheme         string
	StepsRequested int
	StepsCompleted int
	Status         string
	VerletReuse    float64
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Log is the ledger handle. SQLite supports one writer at a time, so the
// connection pool is pinned to a single connection.
type Log struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path and applies the
// schema. Idempotent.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to run ledger: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying run ledger schema: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("executing %q: %w", pragma, err)
		}
	}
	return nil
}

// Append writes one run record. Tokens are unique; re-appending the same
// run is an error.
func (l *Log) Append(ctx context.Context, r Record) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (
			token, config_name, config_hash, scheme,
			steps_requested, steps_completed, status, verlet_reuse,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Token, r.ConfigName, r.ConfigHash, r.Scheme,
		r.StepsRequested, r.StepsCompleted, r.Status, r.VerletReuse,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("appending run %s: %w", r.Token, err)
	}
	return nil
}

// List returns the most recent runs, newest first. A non-empty configHash
// filters to runs of that configuration.
func (l *Log) List(ctx context.Context, configHash string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT token, config_name, config_hash, scheme,
		       steps_requested, steps_completed, status, verlet_reuse,
		       started_at, finished_at
		FROM runs`
	args := []any{}
	if configHash != "" {
		query += ` WHERE config_hash = ?`
		args = append(args, configHash)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var started, finished string
		if err := rows.Scan(
			&r.Token, &r.ConfigName, &r.ConfigHash, &r.Scheme,
			&r.StepsRequested, &r.StepsCompleted, &r.Status, &r.VerletReuse,
			&started, &finished,
		); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing started_at %q: %w", started, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at %q: %w", finished, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

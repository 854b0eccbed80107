// Package history records finished collection runs in a local SQLite
// database so past executions can be listed and resumed.
package history

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	collection  TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	status      TEXT NOT NULL
);
`

// Run is a single finished execution of a collection.
type Run struct {
	ID         string
	Collection string
	StartedAt  time.Time
	Duration   time.Duration
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Status     string
}

type Store struct {
	db *sql.DB
}

// Open opens the database at the given path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open the history database")
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to initialize the history database")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(run *Run) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, collection, started_at, duration_ms, total, succeeded, failed, skipped, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Collection,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Duration.Milliseconds(),
		run.Total,
		run.Succeeded,
		run.Failed,
		run.Skipped,
		run.Status,
	)
	if err != nil {
		return errors.Wrap(err, "failed to record the run")
	}

	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, collection, started_at, duration_ms, total, succeeded, failed, skipped, status
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query the run history")
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		var run Run
		var startedAt string
		var durationMs int64

		if err := rows.Scan(&run.ID, &run.Collection, &startedAt, &durationMs, &run.Total, &run.Succeeded, &run.Failed, &run.Skipped, &run.Status); err != nil {
			return nil, errors.Wrap(err, "failed to scan a run")
		}

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse the run start time")
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond

		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate the run history")
	}

	return runs, nil
}

// Latest returns the most recent run for the given collection, or nil when
// the collection has never been run.
func (s *Store) Latest(collection string) (*Run, error) {
	runs, err := s.latestFor(collection)
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		return nil, nil
	}

	return runs[0], nil
}

func (s *Store) latestFor(collection string) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, collection, started_at, duration_ms, total, succeeded, failed, skipped, status
		 FROM runs WHERE collection = ? ORDER BY started_at DESC LIMIT 1`,
		collection,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query the run history")
	}
	defer rows.Close()

	runs := make([]*Run, 0, 1)
	for rows.Next() {
		var run Run
		var startedAt string
		var durationMs int64

		if err := rows.Scan(&run.ID, &run.Collection, &startedAt, &durationMs, &run.Total, &run.Succeeded, &run.Failed, &run.Skipped, &run.Status); err != nil {
			return nil, errors.Wrap(err, "failed to scan a run")
		}

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse the run start time")
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

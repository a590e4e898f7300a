package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobsieve/internal/model"
)

// Ensure SQLiteStore implements model.RunArchive.
var _ model.RunArchive = (*SQLiteStore)(nil)

// SQLiteStore archives every run and the records it produced.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	run_date     TEXT NOT NULL,
	fragments    INTEGER NOT NULL,
	records      INTEGER NOT NULL,
	hits         INTEGER NOT NULL,
	filtered     INTEGER NOT NULL,
	dropped      INTEGER NOT NULL,
	dataset_path TEXT NOT NULL,
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS records (
	run_id      TEXT NOT NULL REFERENCES runs(run_id),
	position    INTEGER NOT NULL,
	title       TEXT NOT NULL,
	department  TEXT NOT NULL,
	employer    TEXT NOT NULL,
	location    TEXT NOT NULL,
	salary      INTEGER NOT NULL,
	deadline    TEXT NOT NULL,
	href        TEXT NOT NULL,
	description TEXT NOT NULL,
	keyword_hit INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// runs and records tables exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating archive tables: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveRun stores the run summary and its records in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunSummary, records []model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, run_date, fragments, records, hits, filtered, dropped, dataset_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Date.Format(model.DateLayout), run.Fragments, run.Records, run.Hits, run.Filtered, run.Dropped, run.DatasetPath,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, position, title, department, employer, location, salary, deadline, href, description, keyword_hit)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		_, err := stmt.ExecContext(ctx, run.ID, i, r.Title, r.Department, r.Employer, r.Location,
			r.Salary, r.DeadlineISO(), r.DetailRef, r.Description, r.KeywordHit)
		if err != nil {
			return fmt.Errorf("inserting record %d of run %s: %w", i, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// ListRuns returns archived runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, run_date, fragments, records, hits, filtered, dropped, dataset_path
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunSummary
	for rows.Next() {
		var (
			run  model.RunSummary
			date string
		)
		if err := rows.Scan(&run.ID, &date, &run.Fragments, &run.Records, &run.Hits, &run.Filtered, &run.Dropped, &run.DatasetPath); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("run %s has bad date %q: %w", run.ID, date, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadRecords returns the records of one run in dataset order.
func (s *SQLiteStore) LoadRecords(ctx context.Context, runID string) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, department, employer, location, salary, deadline, href, description, keyword_hit
		 FROM records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading records of run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			r        model.Record
			deadline string
		)
		err := rows.Scan(&r.Title, &r.Department, &r.Employer, &r.Location, &r.Salary,
			&deadline, &r.DetailRef, &r.Description, &r.KeywordHit)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if r.Deadline, err = time.Parse(model.DateLayout, deadline); err != nil {
			return nil, fmt.Errorf("record has bad deadline %q: %w", deadline, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

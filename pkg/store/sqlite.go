package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cache-inspector/pkg/run"
)

const backendSQLite = "sqlite"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		url         TEXT NOT NULL,
		status      INTEGER NOT NULL,
		headers     TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		report_id   TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reports (
		report_id  TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS report_runs (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id TEXT NOT NULL,
		run_id    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS report_runs_report_idx ON report_runs (report_id)`,
}

// SQLiteStore stores runs and reports in a SQLite database. Writes are
// serialised; SQLite allows a single writer at a time.
type SQLiteStore struct {
	db         *sql.DB
	logger     zerolog.Logger
	writeMutex *sync.Mutex
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. Use MemoryPath for a throwaway database.
func OpenSQLite(ctx context.Context, path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == MemoryPath {
		// every connection would get its own empty in-memory database
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	if path != MemoryPath {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	logger.Debug().Str("path", path).Msg("SQLite store opened")

	return &SQLiteStore{
		db:         db,
		logger:     logger,
		writeMutex: &sync.Mutex{},
	}, nil
}

// SaveRun stores a run.
func (s *SQLiteStore) SaveRun(ctx context.Context, r *run.Run) (err error) {
	defer func() { observe(backendSQLite, opSaveRun, err) }()

	if err := r.Validate(); err != nil {
		return err
	}

	headers, err := json.Marshal(r.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, url, status, headers, duration_ms, report_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.URL, r.Status, string(headers), r.DurationInMs, r.ReportID, r.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	s.logger.Debug().
		Str("run_id", r.RunID).
		Str("url", r.URL).
		Msg("Run saved")
	return nil
}

// GetRun retrieves a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (_ *run.Run, err error) {
	defer func() { observe(backendSQLite, opGetRun, err) }()

	var (
		r         run.Run
		headers   string
		createdAt int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT run_id, url, status, headers, duration_ms, report_id, created_at FROM runs WHERE run_id = ?`,
		runID).Scan(&r.RunID, &r.URL, &r.Status, &headers, &r.DurationInMs, &r.ReportID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("select run: %w", err)
	}

	if err := json.Unmarshal([]byte(headers), &r.Headers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &r, nil
}

// CreateReport stores a report and its initial run ids in one transaction.
func (s *SQLiteStore) CreateReport(ctx context.Context, report *run.Report) (err error) {
	defer func() { observe(backendSQLite, opCreateReport, err) }()

	if report == nil || report.ReportID == "" {
		return fmt.Errorf("report id cannot be empty")
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (report_id, created_at) VALUES (?, ?)`,
		report.ReportID, report.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM report_runs WHERE report_id = ?`, report.ReportID); err != nil {
		return fmt.Errorf("reset report runs: %w", err)
	}
	for _, runID := range report.RunIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_runs (report_id, run_id) VALUES (?, ?)`,
			report.ReportID, runID); err != nil {
			return fmt.Errorf("insert report run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetReport retrieves a report with its run ids.
func (s *SQLiteStore) GetReport(ctx context.Context, reportID string) (_ *run.Report, err error) {
	defer func() { observe(backendSQLite, opGetReport, err) }()

	var createdAt int64
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at FROM reports WHERE report_id = ?`, reportID).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
		}
		return nil, fmt.Errorf("select report: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM report_runs WHERE report_id = ? ORDER BY id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("select report runs: %w", err)
	}
	defer rows.Close()

	runIDs := make([]string, 0)
	for rows.Next() {
		var runID string
		if err := rows.Scan(&runID); err != nil {
			return nil, fmt.Errorf("scan report run: %w", err)
		}
		runIDs = append(runIDs, runID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report runs: %w", err)
	}

	return &run.Report{
		ReportID:  reportID,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		RunIDs:    runIDs,
	}, nil
}

// AddRunToReport appends a run id to an existing report.
func (s *SQLiteStore) AddRunToReport(ctx context.Context, reportID, runID string) (err error) {
	defer func() { observe(backendSQLite, opAddRunToReport, err) }()

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO report_runs (report_id, run_id)
		SELECT report_id, ? FROM reports WHERE report_id = ?`,
		runID, reportID)
	if err != nil {
		return fmt.Errorf("insert report run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("report %s: %w", reportID, ErrNotFound)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Package store archives crash reports in a local SQLite database so
// they can be listed and inspected after the crashed process is gone.
// The full report is kept as a JSON payload; a few columns are
// denormalized out of it for listing and filtering without a decode.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.ReportStore on a single SQLite file.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the archive at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, core.ErrStorage(core.CodeArchiveCorrupt,
			fmt.Sprintf("creating archive directory for %s", dbPath)).WithCause(err)
	}

	// WAL so a browse session can read while a receiver writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, core.ErrStorage(core.CodeArchiveCorrupt, "opening archive").WithCause(err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration.
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return core.ErrStorage(core.CodeArchiveCorrupt, "applying schema migration v1").WithCause(err)
		}
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save upserts the report keyed by UUID.
func (s *SQLiteStore) Save(ctx context.Context, report *crash.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(report)
	if err != nil {
		return core.ErrInternal("encoding report for archive").WithCause(err)
	}
	sum := report.Summarize()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (
			uuid, timestamp, is_crash, incomplete, signum, signame,
			pid, message, frame_count, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			timestamp = excluded.timestamp,
			is_crash = excluded.is_crash,
			incomplete = excluded.incomplete,
			signum = excluded.signum,
			signame = excluded.signame,
			pid = excluded.pid,
			message = excluded.message,
			frame_count = excluded.frame_count,
			payload = excluded.payload
	`,
		report.UUID, report.Timestamp.UTC().Format(time.RFC3339Nano),
		report.IsCrash, report.Incomplete, sum.Signum, sum.Signame,
		sum.PID, sum.Message, sum.FrameCount, string(payload),
	)
	if err != nil {
		return core.ErrStorage(core.CodeArchiveCorrupt,
			fmt.Sprintf("saving report %s", report.UUID)).WithCause(err)
	}
	return nil
}

// Get loads one report by UUID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*crash.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM reports WHERE uuid = ?", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("report", id)
	}
	if err != nil {
		return nil, core.ErrStorage(core.CodeArchiveCorrupt,
			fmt.Sprintf("loading report %s", id)).WithCause(err)
	}

	var report crash.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, core.ErrStorage(core.CodeArchiveCorrupt,
			fmt.Sprintf("report %s payload is not valid JSON", id)).WithCause(err)
	}
	return &report, nil
}

// List returns summaries newest first, narrowed by filter.
func (s *SQLiteStore) List(ctx context.Context, filter core.ReportFilter) ([]crash.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT uuid, timestamp, is_crash, incomplete, signum, signame,
		pid, message, frame_count FROM reports`
	var conds []string
	var args []interface{}
	if filter.OnlyCrashes {
		conds = append(conds, "is_crash = 1")
	}
	if filter.OnlyIncomplete {
		conds = append(conds, "incomplete = 1")
	}
	if filter.Signal != "" {
		conds = append(conds, "signame = ?")
		args = append(args, filter.Signal)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.ErrStorage(core.CodeArchiveCorrupt, "listing reports").WithCause(err)
	}
	defer rows.Close()

	var out []crash.Summary
	for rows.Next() {
		var sum crash.Summary
		var ts string
		if err := rows.Scan(&sum.UUID, &ts, &sum.IsCrash, &sum.Incomplete,
			&sum.Signum, &sum.Signame, &sum.PID, &sum.Message, &sum.FrameCount); err != nil {
			return nil, core.ErrStorage(core.CodeArchiveCorrupt, "scanning report row").WithCause(err)
		}
		sum.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, core.ErrStorage(core.CodeArchiveCorrupt, "iterating report rows").WithCause(err)
	}
	return out, nil
}

// Delete removes a report by UUID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE uuid = ?", id)
	if err != nil {
		return core.ErrStorage(core.CodeArchiveCorrupt,
			fmt.Sprintf("deleting report %s", id)).WithCause(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound("report", id)
	}
	return nil
}

// MarkUploaded records a successful delivery timestamp.
func (s *SQLiteStore) MarkUploaded(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE reports SET uploaded_at = ? WHERE uuid = ?",
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return core.ErrStorage(core.CodeArchiveCorrupt,
			fmt.Sprintf("marking report %s uploaded", id)).WithCause(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound("report", id)
	}
	return nil
}

// Prune deletes reports older than the cutoff. Returns how many were
// removed.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM reports WHERE timestamp < ?",
		olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, core.ErrStorage(core.CodeArchiveCorrupt, "pruning reports").WithCause(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

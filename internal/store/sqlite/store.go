// Package sqlite implements jobs.Store on a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leefowlercu/batch-monitor/internal/jobs"

	_ "modernc.org/sqlite"
)

var _ jobs.Store = (*Store)(nil)

// DefaultBusyTimeout bounds how long a writer waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

const selectColumns = `SELECT id, name, start_time, end_time, status FROM jobs`

// Store is the SQLite implementation of jobs.Store.
type Store struct {
	db *sql.DB
}

// Option configures Open.
type Option func(*options)

type options struct {
	busyTimeout time.Duration
}

// WithBusyTimeout sets the SQLite busy timeout applied to every connection.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// Open creates or opens the database at dbPath and applies pending migrations.
func Open(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	o := options{busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory; %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath, o))
	if err != nil {
		return nil, fmt.Errorf("failed to open database; %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database; %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations; %w", err)
	}

	return &Store{db: db}, nil
}

// dsn builds a connection string that applies pragmas to every pooled connection.
func dsn(path string, o options) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", o.busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}

// DB exposes the underlying handle for maintenance tasks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Insert adds a new job record.
func (s *Store) Insert(ctx context.Context, rec jobs.Record) error {
	var end *int64
	if rec.EndTime != nil {
		n := rec.EndTime.UnixNano()
		end = &n
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, name, start_time, end_time, status) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.StartTime.UnixNano(), end, string(rec.Status),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("job id %s already exists; %w", rec.ID, err)
		}
		return fmt.Errorf("failed to insert job; %w", err)
	}

	return nil
}

// Get retrieves a job record by id.
func (s *Store) Get(ctx context.Context, id string) (jobs.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobs.Record{}, jobs.ErrUnknownJob
		}
		return jobs.Record{}, fmt.Errorf("failed to get job; %w", err)
	}
	return rec, nil
}

// Finish ends a running job in a single conditional statement, so concurrent
// callers racing on the same id see exactly one success.
func (s *Store) Finish(ctx context.Context, id string, end time.Time, status jobs.Status) (jobs.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE jobs SET end_time = MAX(?, start_time), status = ?
		 WHERE id = ? AND status = ?
		 RETURNING id, name, start_time, end_time, status`,
		end.UnixNano(), string(status), id, string(jobs.StatusRunning),
	)

	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return jobs.Record{}, fmt.Errorf("failed to finish job; %w", err)
	}

	// Nothing updated: either the id is unknown or the job is no longer running.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return jobs.Record{}, fmt.Errorf("failed to check job; %w", err)
	}
	if exists == 0 {
		return jobs.Record{}, jobs.ErrUnknownJob
	}
	return jobs.Record{}, jobs.ErrAlreadyFinished
}

// List returns job records ordered by start time.
func (s *Store) List(ctx context.Context, opts jobs.ListOptions) ([]jobs.Record, error) {
	var (
		where []string
		args  []any
	)
	if opts.Name != "" {
		where = append(where, "name = ?")
		args = append(args, opts.Name)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if !opts.Since.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, opts.Since.UnixNano())
	}
	if !opts.Until.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, opts.Until.UnixNano())
	}

	var b strings.Builder
	b.WriteString(selectColumns)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if opts.Descending {
		b.WriteString(" ORDER BY start_time DESC, id DESC")
	} else {
		b.WriteString(" ORDER BY start_time ASC, id ASC")
	}
	if opts.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs; %w", err)
	}
	defer rows.Close()

	var recs []jobs.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job; %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs; %w", err)
	}

	return recs, nil
}

// Prune deletes finished jobs that ended before the cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE end_time IS NOT NULL AND end_time < ?`,
		before.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune jobs; %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected; %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row. Nullable columns are tolerated so that malformed
// rows surface as records failing Validate instead of aborting a listing.
func scanRecord(row scanner) (jobs.Record, error) {
	var (
		id, name, status sql.NullString
		start, end       sql.NullInt64
	)
	if err := row.Scan(&id, &name, &start, &end, &status); err != nil {
		return jobs.Record{}, err
	}

	rec := jobs.Record{
		ID:     id.String,
		Name:   name.String,
		Status: jobs.Status(status.String),
	}
	if start.Valid {
		rec.StartTime = time.Unix(0, start.Int64).UTC()
	}
	if end.Valid {
		t := time.Unix(0, end.Int64).UTC()
		rec.EndTime = &t
	}
	return rec, nil
}

// Package sqlite implements the domain repositories on an embedded SQLite
// file using the pure Go driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"bmicalc/internal/domain"
)

// Ensure interfaces are met.
var _ domain.HistoryRepository = (*DB)(nil)
var _ domain.SessionRepository = (*DB)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS bmi_records (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    session_id TEXT NOT NULL,
    day TEXT NOT NULL,
    bmi REAL NOT NULL,
    percentage_change REAL,
    category TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_bmi_records_session_seq ON bmi_records(session_id, seq);
`

// DB implements the repositories on SQLite.
type DB struct {
	sql *sql.DB
}

// Open creates the parent directory, opens the database, runs the schema and
// purges sessions left by a previous process.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	s, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers, which makes AppendNext atomic.
	s.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.ExecContext(ctx, schema); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if _, err := s.ExecContext(ctx, "DELETE FROM sessions;"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return &DB{sql: s}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// --- HistoryRepository ---

// AppendNext computes and inserts the next record inside one transaction.
func (d *DB) AppendNext(ctx context.Context, sessionID string, fn func(prev *domain.Record) (domain.Record, error)) (domain.Record, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return domain.Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sessions WHERE id = ?)", sessionID).Scan(&exists); err != nil {
		return domain.Record{}, err
	}
	if !exists {
		return domain.Record{}, domain.ErrSessionNotFound
	}

	row := tx.QueryRowContext(ctx,
		"SELECT id, day, bmi, percentage_change, category FROM bmi_records WHERE session_id = ? ORDER BY seq DESC LIMIT 1",
		sessionID,
	)
	var prev *domain.Record
	last, err := scanRecord(row)
	switch {
	case err == nil:
		prev = &last
	case err != sql.ErrNoRows:
		return domain.Record{}, err
	}

	rec, err := fn(prev)
	if err != nil {
		return domain.Record{}, err
	}

	var change sql.NullFloat64
	if rec.PercentageChange != nil {
		change = sql.NullFloat64{Float64: *rec.PercentageChange, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO bmi_records (id, session_id, day, bmi, percentage_change, category, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.ID.String(), sessionID, rec.Date.Format(time.DateOnly), rec.BMI, change, string(rec.Category), time.Now().Unix(),
	)
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to insert record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

// ListHistory returns the session's records in entry order.
func (d *DB) ListHistory(ctx context.Context, sessionID string) ([]domain.Record, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, day, bmi, percentage_change, category FROM bmi_records WHERE session_id = ? ORDER BY seq ASC",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.Record, error) {
	var (
		rec      domain.Record
		day      string
		change   sql.NullFloat64
		category string
	)
	if err := s.Scan(&rec.ID, &day, &rec.BMI, &change, &category); err != nil {
		return domain.Record{}, err
	}
	date, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return domain.Record{}, fmt.Errorf("bad record day %q: %w", day, err)
	}
	rec.Date = date
	rec.Category = domain.Category(category)
	if change.Valid {
		v := change.Float64
		rec.PercentageChange = &v
	}
	return rec, nil
}

// --- SessionRepository ---

// CreateSession inserts a session row.
func (d *DB) CreateSession(ctx context.Context, id string, expiresAt time.Time) (*domain.Session, error) {
	now := time.Now()
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at, expires_at) VALUES (?, ?, ?)",
		id, now.UnixNano(), expiresAt.UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	return &domain.Session{ID: id, CreatedAt: time.Unix(0, now.UnixNano()).UTC(), ExpiresAt: time.Unix(0, expiresAt.UnixNano()).UTC()}, nil
}

// GetSession retrieves a session by ID, expired or not.
func (d *DB) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var (
		s                  domain.Session
		created, expiresAt int64
	)
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, created_at, expires_at FROM sessions WHERE id = ?", id,
	).Scan(&s.ID, &created, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt = time.Unix(0, created).UTC()
	s.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return &s, nil
}

// TouchSession updates the session expiry.
func (d *DB) TouchSession(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE sessions SET expires_at = ? WHERE id = ?", expiresAt.UnixNano(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteSession deletes a session; its records go with it.
func (d *DB) DeleteSession(ctx context.Context, id string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteExpiredSessions deletes all expired sessions.
func (d *DB) DeleteExpiredSessions(ctx context.Context) (int, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CountSessions returns the number of unexpired sessions.
func (d *DB) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(1) FROM sessions WHERE expires_at >= ?", time.Now().UnixNano()).Scan(&n)
	return n, err
}

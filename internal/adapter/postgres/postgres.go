// Package postgres implements the domain repositories using PostgreSQL.
//
// Rows only live as long as their session: deleting a session cascades to its
// records, and Open purges whatever a previous process left behind.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL, pings, runs migrations and purges stale
// sessions.
//
// The purge deletes every session in the database, live or not, so a
// database must be owned by a single bmicalc process. A second instance
// opening the same database ends all sessions of the first.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS sessions (id TEXT PRIMARY KEY, created_at TIMESTAMPTZ NOT NULL, expires_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
		"CREATE TABLE IF NOT EXISTS bmi_records (seq BIGSERIAL PRIMARY KEY, id UUID UNIQUE NOT NULL, session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE, day DATE NOT NULL, bmi DOUBLE PRECISION NOT NULL, percentage_change DOUBLE PRECISION, category TEXT NOT NULL CHECK(category IN ('Underweight','Normal weight','Overweight','Obese')), created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_bmi_records_session_seq ON bmi_records(session_id, seq);",
	}
	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// History is session memory, not a journal.
	if _, err := d.sql.ExecContext(ctx, "DELETE FROM sessions;"); err != nil {
		return fmt.Errorf("migrate: purge sessions: %w", err)
	}
	return nil
}

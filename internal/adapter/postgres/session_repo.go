package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bmicalc/internal/domain"
)

// Ensure interfaces are met.
var _ domain.HistoryRepository = (*DB)(nil)
var _ domain.SessionRepository = (*DB)(nil)

// CreateSession inserts a session row.
func (d *DB) CreateSession(ctx context.Context, id string, expiresAt time.Time) (*domain.Session, error) {
	s := domain.Session{ID: id, CreatedAt: time.Now().UTC(), ExpiresAt: expiresAt.UTC()}
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO sessions(id, created_at, expires_at) VALUES($1, $2, $3);",
		s.ID, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession retrieves a session by ID, expired or not.
func (d *DB) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, created_at, expires_at FROM sessions WHERE id = $1;", id,
	).Scan(&s.ID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TouchSession updates the session expiry.
func (d *DB) TouchSession(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE sessions SET expires_at = $2 WHERE id = $1;", id, expiresAt.UTC())
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
	_, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1;", id)
	return err
}

// DeleteExpiredSessions deletes all expired sessions.
func (d *DB) DeleteExpiredSessions(ctx context.Context) (int, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < $1;", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CountSessions returns the number of unexpired sessions.
func (d *DB) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(1) FROM sessions WHERE expires_at >= $1;", time.Now().UTC()).Scan(&n)
	return n, err
}

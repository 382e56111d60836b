package domain

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound indicates that the session does not exist or has ended.
var ErrSessionNotFound = errors.New("session not found")

// Session scopes a history. Its records are discarded when it ends.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionRepository defines the port for session lifetime operations.
// Deleting a session deletes its history.
type SessionRepository interface {
	CreateSession(ctx context.Context, id string, expiresAt time.Time) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	TouchSession(ctx context.Context, id string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)
	CountSessions(ctx context.Context) (int, error)
}

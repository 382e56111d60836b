// Package memory implements the repositories in process memory. Nothing
// survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"bmicalc/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu        sync.Mutex
	histories map[string]*domain.History

	// sessions expire on their own; eviction drops the session's history.
	sessions *cache.Cache
}

// New creates a new in-memory database. Expired sessions are only removed
// by DeleteExpiredSessions; there is no background cleanup.
func New() *DB {
	db := &DB{
		histories: make(map[string]*domain.History),
		sessions:  cache.New(cache.NoExpiration, 0),
	}
	db.sessions.OnEvicted(func(id string, _ any) {
		db.dropHistory(id)
	})
	return db
}

// Ensure interfaces are met.
var _ domain.HistoryRepository = (*DB)(nil)
var _ domain.SessionRepository = (*DB)(nil)

// --- HistoryRepository ---

// AppendNext appends the record built by fn from the session's last record.
func (db *DB) AppendNext(ctx context.Context, sessionID string, fn func(prev *domain.Record) (domain.Record, error)) (domain.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	// Checked under mu: a concurrent DeleteSession either fails this lookup
	// or drops the history after we release the lock.
	if _, ok := db.sessions.Get(sessionID); !ok {
		return domain.Record{}, domain.ErrSessionNotFound
	}

	h, ok := db.histories[sessionID]
	if !ok {
		h = &domain.History{}
		db.histories[sessionID] = h
	}
	rec, err := fn(h.Last())
	if err != nil {
		return domain.Record{}, err
	}
	h.Append(rec)
	return rec, nil
}

// ListHistory returns the session's records in entry order.
func (db *DB) ListHistory(ctx context.Context, sessionID string) ([]domain.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	h, ok := db.histories[sessionID]
	if !ok {
		return []domain.Record{}, nil
	}
	return h.Records(), nil
}

func (db *DB) dropHistory(sessionID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.histories, sessionID)
}

// --- SessionRepository ---

// CreateSession registers a session that expires at expiresAt.
func (db *DB) CreateSession(ctx context.Context, id string, expiresAt time.Time) (*domain.Session, error) {
	s := domain.Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt.UTC(),
	}
	if err := db.sessions.Add(id, s, ttl(expiresAt)); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession returns the session, or nil if it does not exist or expired.
func (db *DB) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	v, ok := db.sessions.Get(id)
	if !ok {
		return nil, nil
	}
	s := v.(domain.Session)
	return &s, nil
}

// TouchSession moves the expiry of a live session.
func (db *DB) TouchSession(ctx context.Context, id string, expiresAt time.Time) error {
	v, ok := db.sessions.Get(id)
	if !ok {
		return domain.ErrSessionNotFound
	}
	s := v.(domain.Session)
	s.ExpiresAt = expiresAt.UTC()
	return db.sessions.Replace(id, s, ttl(expiresAt))
}

// DeleteSession removes the session together with its history.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	db.sessions.Delete(id)
	// Clear history even when the session is already gone.
	db.dropHistory(id)
	return nil
}

// DeleteExpiredSessions evicts expired sessions and returns how many went.
func (db *DB) DeleteExpiredSessions(ctx context.Context) (int, error) {
	before := db.sessions.ItemCount()
	db.sessions.DeleteExpired()
	return before - db.sessions.ItemCount(), nil
}

// CountSessions returns the number of live sessions.
func (db *DB) CountSessions(ctx context.Context) (int, error) {
	return len(db.sessions.Items()), nil
}

// ttl converts an absolute expiry to a go-cache duration. go-cache treats
// non-positive durations as "never", so past expiries become the smallest
// positive one.
func ttl(expiresAt time.Time) time.Duration {
	d := time.Until(expiresAt)
	if d <= 0 {
		return time.Nanosecond
	}
	return d
}

// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bmicalc/internal/domain"
	"bmicalc/internal/metrics"
)

var (
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = domain.ErrSessionNotFound
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
)

// SessionService owns session lifetimes. A session's history lives exactly
// as long as the session.
type SessionService struct {
	sessions domain.SessionRepository
	ttl      time.Duration
	log      *slog.Logger
	metrics  *metrics.BMIMetrics
}

// NewSessionService creates a SessionService whose sessions expire after ttl
// without activity. logger and m may be nil.
func NewSessionService(sessions domain.SessionRepository, ttl time.Duration, logger *slog.Logger, m *metrics.BMIMetrics) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{sessions: sessions, ttl: ttl, log: logger, metrics: m}
}

// Start creates a new session with an empty history.
func (s *SessionService) Start(ctx context.Context) (*domain.Session, error) {
	sess, err := s.sessions.CreateSession(ctx, uuid.NewString(), time.Now().Add(s.ttl))
	if err != nil {
		return nil, err
	}
	s.log.Debug("session started", "session", sess.ID)
	s.refreshGauge(ctx)
	return sess, nil
}

// Resume validates a session and extends its expiry.
func (s *SessionService) Resume(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	now := time.Now()
	if now.After(sess.ExpiresAt) {
		if err := s.sessions.DeleteSession(ctx, id); err != nil {
			s.log.Warn("delete expired session", "session", id, "error", err)
		}
		s.refreshGauge(ctx)
		return nil, ErrSessionExpired
	}

	expiresAt := now.Add(s.ttl)
	if err := s.sessions.TouchSession(ctx, id, expiresAt); err != nil {
		return nil, err
	}
	sess.ExpiresAt = expiresAt
	return sess, nil
}

// End deletes the session and its history.
func (s *SessionService) End(ctx context.Context, id string) error {
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.log.Debug("session ended", "session", id)
	s.refreshGauge(ctx)
	return nil
}

// Sweep deletes expired sessions.
func (s *SessionService) Sweep(ctx context.Context) error {
	n, err := s.sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("expired sessions removed", "count", n)
	}
	s.refreshGauge(ctx)
	return nil
}

// RunJanitor sweeps every interval until ctx is done.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("session sweep failed", "error", err)
			}
		}
	}
}

func (s *SessionService) refreshGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	n, err := s.sessions.CountSessions(ctx)
	if err != nil {
		s.log.Warn("count sessions", "error", err)
		return
	}
	s.metrics.SetSessionsActive(n)
}

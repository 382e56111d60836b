package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"bmicalc/internal/domain"
	"bmicalc/internal/metrics"
)

// ErrFutureDate indicates a measurement date after today.
var ErrFutureDate = errors.New("date is in the future")

// BMIService encapsulates the BMI calculation use cases of a session.
type BMIService struct {
	repo    domain.HistoryRepository
	log     *slog.Logger
	metrics *metrics.BMIMetrics
}

// NewBMIService creates a BMIService backed by the given repository. logger
// and m may be nil.
func NewBMIService(repo domain.HistoryRepository, logger *slog.Logger, m *metrics.BMIMetrics) *BMIService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BMIService{repo: repo, log: logger, metrics: m}
}

// Calculate computes a BMI from the raw inputs and appends it to the
// session's history. Invalid inputs yield domain.ErrInvalidInput and leave
// the history untouched.
func (s *BMIService) Calculate(ctx context.Context, sessionID, weight, height string, date time.Time) (domain.Record, error) {
	if domain.CalendarDay(date).After(domain.CalendarDay(time.Now())) {
		s.metrics.ObserveFailure(metrics.OutcomeFutureDate)
		return domain.Record{}, ErrFutureDate
	}

	rec, err := s.repo.AppendNext(ctx, sessionID, func(prev *domain.Record) (domain.Record, error) {
		return domain.ComputeBMI(weight, height, date, prev)
	})
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		s.log.Debug("bmi input rejected", "session", sessionID, "weight", weight, "height", height)
		s.metrics.ObserveFailure(metrics.OutcomeInvalidInput)
		return domain.Record{}, err
	case err != nil:
		s.metrics.ObserveFailure(metrics.OutcomeError)
		return domain.Record{}, fmt.Errorf("record bmi: %w", err)
	}

	s.log.Info("bmi recorded", "session", sessionID, "bmi", rec.BMI, "category", rec.Category)
	s.metrics.ObserveRecord(rec)
	return rec, nil
}

// History returns the session's records newest first, at most limit of them
// when limit > 0.
func (s *BMIService) History(ctx context.Context, sessionID string, limit int) ([]domain.Record, error) {
	recs, err := s.repo.ListHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	slices.Reverse(recs)
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bmicalc/internal/domain"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AppendNext computes and inserts the next record inside one transaction,
// holding an advisory lock on the session for its duration.
func (d *DB) AppendNext(ctx context.Context, sessionID string, fn func(prev *domain.Record) (domain.Record, error)) (domain.Record, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return domain.Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1));", sessionID); err != nil {
		return domain.Record{}, fmt.Errorf("lock session: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sessions WHERE id=$1);", sessionID).Scan(&exists); err != nil {
		return domain.Record{}, err
	}
	if !exists {
		return domain.Record{}, domain.ErrSessionNotFound
	}

	prev, err := lastRecord(ctx, tx, sessionID)
	if err != nil {
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
		"INSERT INTO bmi_records(id, session_id, day, bmi, percentage_change, category, created_at) VALUES($1, $2, $3, $4, $5, $6, $7);",
		rec.ID, sessionID, rec.Date.Format("2006-01-02"), rec.BMI, change, string(rec.Category), time.Now().UTC(),
	)
	if err != nil {
		return domain.Record{}, fmt.Errorf("insert record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func lastRecord(ctx context.Context, q queryer, sessionID string) (*domain.Record, error) {
	row := q.QueryRowContext(ctx,
		"SELECT id, day, bmi, percentage_change, category FROM bmi_records WHERE session_id=$1 ORDER BY seq DESC LIMIT 1;",
		sessionID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListHistory returns the session's records in entry order.
func (d *DB) ListHistory(ctx context.Context, sessionID string) ([]domain.Record, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, day, bmi, percentage_change, category FROM bmi_records WHERE session_id=$1 ORDER BY seq ASC;",
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
		day      time.Time
		change   sql.NullFloat64
		category string
	)
	if err := s.Scan(&rec.ID, &day, &rec.BMI, &change, &category); err != nil {
		return domain.Record{}, err
	}
	rec.Date = domain.CalendarDay(day)
	rec.Category = domain.Category(category)
	if change.Valid {
		v := change.Float64
		rec.PercentageChange = &v
	}
	return rec, nil
}

package domain

import "context"

// History is an append-only sequence of records in entry order.
type History struct {
	records []Record
}

// Append adds rec after the last record.
func (h *History) Append(rec Record) {
	h.records = append(h.records, rec)
}

// Last returns the most recently appended record, or nil when empty.
func (h *History) Last() *Record {
	if len(h.records) == 0 {
		return nil
	}
	last := h.records[len(h.records)-1]
	return &last
}

// Len returns the number of records.
func (h *History) Len() int {
	return len(h.records)
}

// Records returns a copy of the records in entry order.
func (h *History) Records() []Record {
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// HistoryRepository is the port for per-session BMI history.
type HistoryRepository interface {
	// AppendNext calls fn with the last record of the session (nil if none)
	// and appends the record it returns. The read and the append are atomic
	// with respect to other calls for the same session.
	AppendNext(ctx context.Context, sessionID string, fn func(prev *Record) (Record, error)) (Record, error)
	ListHistory(ctx context.Context, sessionID string) ([]Record, error)
}

// Package view formats BMI records the way users see them.
package view

import (
	"fmt"
	"time"

	"bmicalc/internal/domain"
)

// Alert shown when weight or height is rejected.
const (
	AlertTitle   = "Invalid Input"
	AlertMessage = "Please enter valid numeric values for weight and height."
)

// DateLayout is the medium date style, e.g. "Oct 13, 2024".
const DateLayout = "Jan 2, 2006"

// Record is the display form of a domain.Record.
type Record struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	BMI      string `json:"bmi"`
	Category string `json:"category"`
	Change   string `json:"change,omitempty"`
}

// Alert is the display form of a rejected calculation.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// InvalidInput returns the fixed invalid-input alert.
func InvalidInput() Alert {
	return Alert{Title: AlertTitle, Message: AlertMessage}
}

// FormatBMI renders a BMI with two decimals.
func FormatBMI(bmi float64) string {
	return fmt.Sprintf("%.2f", bmi)
}

// FormatChange renders a percentage change, or "" when there is none.
func FormatChange(change *float64) string {
	if change == nil {
		return ""
	}
	return fmt.Sprintf("%.2f%%", *change)
}

// FormatDate renders a calendar day in the medium style.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// FromRecord converts a record for display.
func FromRecord(rec domain.Record) Record {
	return Record{
		ID:       rec.ID.String(),
		Date:     FormatDate(rec.Date),
		BMI:      FormatBMI(rec.BMI),
		Category: string(rec.Category),
		Change:   FormatChange(rec.PercentageChange),
	}
}

// List converts records, keeping their order.
func List(records []domain.Record) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		out = append(out, FromRecord(rec))
	}
	return out
}

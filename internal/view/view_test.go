package view

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"bmicalc/internal/domain"
)

func TestFormatting(t *testing.T) {
	if got := FormatBMI(22.857142); got != "22.86" {
		t.Errorf("FormatBMI = %q", got)
	}
	if got := FormatChange(nil); got != "" {
		t.Errorf("FormatChange(nil) = %q", got)
	}
	change := 14.2857
	if got := FormatChange(&change); got != "14.29%" {
		t.Errorf("FormatChange = %q", got)
	}
	neg := -2.5
	if got := FormatChange(&neg); got != "-2.50%" {
		t.Errorf("FormatChange(neg) = %q", got)
	}
	if got := FormatDate(time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC)); got != "Oct 13, 2024" {
		t.Errorf("FormatDate = %q", got)
	}
}

func TestList(t *testing.T) {
	change := 10.0
	recs := []domain.Record{
		{ID: uuid.New(), Date: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), BMI: 25, Category: domain.Overweight},
		{ID: uuid.New(), Date: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC), BMI: 27.5, Category: domain.Overweight, PercentageChange: &change},
	}
	got := List(recs)
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	if got[0].ID != recs[0].ID.String() || got[1].ID != recs[1].ID.String() {
		t.Fatal("expected order to be kept")
	}
	if got[0].Change != "" || got[1].Change != "10.00%" {
		t.Errorf("unexpected changes: %q, %q", got[0].Change, got[1].Change)
	}
	if got[1].Date != "Sep 1, 2024" || got[1].BMI != "27.50" || got[1].Category != "Overweight" {
		t.Errorf("unexpected view: %+v", got[1])
	}
}

func TestInvalidInput(t *testing.T) {
	a := InvalidInput()
	if a.Title != "Invalid Input" || a.Message != "Please enter valid numeric values for weight and height." {
		t.Fatalf("unexpected alert: %+v", a)
	}
}

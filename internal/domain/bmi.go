// Package domain contains the core business entities and interfaces.
package domain

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidInput is returned when weight or height cannot be used to
// compute a BMI.
var ErrInvalidInput = errors.New("invalid input")

// Category is a BMI classification band.
type Category string

const (
	Underweight  Category = "Underweight"
	NormalWeight Category = "Normal weight"
	Overweight   Category = "Overweight"
	Obese        Category = "Obese"
)

// Band lower bounds, inclusive.
const (
	normalFloor     = 18.5
	overweightFloor = 24.9
	obeseFloor      = 29.9
)

// Record is one immutable BMI calculation.
type Record struct {
	ID               uuid.UUID `json:"id"`
	Date             time.Time `json:"date"`
	BMI              float64   `json:"bmi"`
	PercentageChange *float64  `json:"percentageChange,omitempty"`
	Category         Category  `json:"category"`
}

// ComputeBMI parses the raw weight (kg) and height (m) inputs and returns the
// record that follows previous. previous may be nil for the first record of a
// session, in which case the record carries no percentage change.
func ComputeBMI(weightInput, heightInput string, date time.Time, previous *Record) (Record, error) {
	weight, err := parseMeasure(weightInput)
	if err != nil {
		return Record{}, err
	}
	height, err := parseMeasure(heightInput)
	if err != nil {
		return Record{}, err
	}

	bmi := weight / (height * height)
	if math.IsInf(bmi, 0) || math.IsNaN(bmi) {
		return Record{}, ErrInvalidInput
	}

	rec := Record{
		ID:       uuid.New(),
		Date:     CalendarDay(date),
		BMI:      bmi,
		Category: Classify(bmi),
	}
	if previous != nil {
		change := PercentChange(previous.BMI, bmi)
		rec.PercentageChange = &change
	}
	return rec, nil
}

// parseMeasure accepts a finite decimal strictly greater than zero.
func parseMeasure(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidInput
	}
	if math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
		return 0, ErrInvalidInput
	}
	return v, nil
}

// Classify maps a BMI value to its category. Values that match no lower band,
// NaN included, are Obese.
func Classify(bmi float64) Category {
	switch {
	case bmi < normalFloor:
		return Underweight
	case bmi >= normalFloor && bmi < overweightFloor:
		return NormalWeight
	case bmi >= overweightFloor && bmi < obeseFloor:
		return Overweight
	default:
		return Obese
	}
}

// PercentChange returns the change from previous to current in percent of
// previous.
func PercentChange(previous, current float64) float64 {
	return (current - previous) / previous * 100
}

// CalendarDay drops the time of day, keeping the year, month and day as seen
// in t's location.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

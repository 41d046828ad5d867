package utils

import (
	"fmt"
	"time"
)

// DayOf truncates an instant to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses an ISO calendar day (2006-01-02).
func ParseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty day value")
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse day: %w", err)
	}
	return t, nil
}

// DaysBetween counts the whole calendar days from start to end inclusive.
func DaysBetween(start, end time.Time) int {
	start, end = DayOf(start), DayOf(end)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

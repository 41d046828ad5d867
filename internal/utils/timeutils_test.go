package utils

import (
	"testing"
	"time"
)

func TestDayOf(t *testing.T) {
	in := time.Date(2024, 3, 5, 23, 45, 12, 987, time.UTC)
	got := DayOf(in)
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DayOf = %v, want %v", got, want)
	}
}

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2024-03-05")
	if err != nil {
		t.Fatalf("ParseDay returned error: %v", err)
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("ParseDay = %v, want %v", got, want)
	}

	if _, err := ParseDay(""); err == nil {
		t.Fatal("ParseDay accepted empty value")
	}
	if _, err := ParseDay("03/05/2024"); err == nil {
		t.Fatal("ParseDay accepted non-ISO layout")
	}
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)

	if got := DaysBetween(start, end); got != 10 {
		t.Fatalf("DaysBetween = %d, want 10", got)
	}
	if got := DaysBetween(start, start); got != 1 {
		t.Fatalf("DaysBetween same day = %d, want 1", got)
	}
	if got := DaysBetween(end, start); got != 0 {
		t.Fatalf("DaysBetween reversed = %d, want 0", got)
	}
}

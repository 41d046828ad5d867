package utils

import (
	"errors"
	"testing"
)

func TestAppErrorWrapsSentinel(t *testing.T) {
	sentinel := errors.New("boom")
	err := NewAppError("Detect", "cluster observations", sentinel)

	if !errors.Is(err, sentinel) {
		t.Fatal("errors.Is lost the wrapped sentinel")
	}
	want := "Detect: cluster observations: boom"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAppErrorWithoutCause(t *testing.T) {
	err := NewAppError("Load", "no header row", nil)
	if err.Error() != "Load: no header row" {
		t.Fatalf("Error() = %q", err.Error())
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As failed to match AppError")
	}
}

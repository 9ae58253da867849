package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAppErrorError(t *testing.T) {
	err := New("TEST", "something failed", http.StatusBadRequest)
	if err.Error() != "something failed" {
		t.Fatalf("unexpected message: %s", err.Error())
	}

	wrapped := err.WithInternal(errors.New("disk full"))
	if wrapped.Error() != "something failed: disk full" {
		t.Fatalf("unexpected wrapped message: %s", wrapped.Error())
	}
}

func TestWrapKeepsInternal(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap(inner, "persist alerts")

	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to match internal error")
	}
	if err.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}

	if got := FromError(ErrNotFound); got != ErrNotFound {
		t.Fatal("expected AppError to pass through")
	}

	generic := FromError(errors.New("boom"))
	if generic.Code != ErrInternalServer.Code {
		t.Fatalf("unexpected code: %s", generic.Code)
	}
}

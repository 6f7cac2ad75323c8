package retryutil

import (
	"context"
	"errors"
	"testing"
)

type permanentErr struct{ msg string }

func (e *permanentErr) Error() string  { return e.msg }
func (e *permanentErr) Retryable() bool { return false }

func TestDoRetriesExactlyMaxTries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 7, func() error {
		attempts++
		return errors.New("transient")
	})
	if err == nil {
		t.Fatal("expected Do to report failure once the retry budget is exhausted")
	}
	if attempts != 7 {
		t.Fatalf("expected exactly 7 attempts, got %d", attempts)
	}
}

func TestDoStopsOnSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 10, func() error {
		attempts++
		if attempts == 3 {
			return nil
		}
		return errors.New("transient")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected Do to stop at the 3rd attempt, got %d", attempts)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), 10, func() error {
		attempts++
		return &permanentErr{msg: "fatal"}
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 1 {
		t.Fatalf("expected Do to stop after the first non-retryable error, got %d attempts", attempts)
	}
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), func() error {
		calls++
		return nil
	}, 3, time.Millisecond)

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithBackoff_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := WithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, 5, time.Millisecond)

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithBackoff_ExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("permanent")
	calls := 0
	err := WithBackoff(context.Background(), func() error {
		calls++
		return wantErr
	}, 3, time.Millisecond)

	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the last attempt's error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithBackoff_InvalidMaxAttempts(t *testing.T) {
	err := WithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	if !errors.Is(err, ErrInvalidMaxAttempts) {
		t.Fatalf("expected ErrInvalidMaxAttempts, got %v", err)
	}
}

func TestWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := WithBackoff(ctx, func() error {
		calls++
		return errors.New("transient")
	}, 10, time.Second)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected cancellation during the first backoff, got %d calls", calls)
	}
}

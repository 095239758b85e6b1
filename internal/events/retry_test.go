package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	policy := RetryPolicy{Attempts: 5, InitialDelay: 500 * time.Millisecond, MaxDelay: 8 * time.Second}

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{4, 8 * time.Second},
		{10, 8 * time.Second},
	}

	for _, tt := range tests {
		if got := policy.Backoff(tt.failures); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConnect_RetriesUntilSuccess(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	calls := 0
	p, err := Connect(context.Background(), policy, func() (Publisher, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return NoopPublisher{}, nil
	}, quietLogger())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if p == nil {
		t.Fatal("expected publisher")
	}
	if calls != 3 {
		t.Errorf("dial calls = %d, want 3", calls)
	}
}

func TestConnect_ReturnsLastErrorAfterAllAttempts(t *testing.T) {
	policy := RetryPolicy{Attempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	dialErr := errors.New("connection refused")

	calls := 0
	_, err := Connect(context.Background(), policy, func() (Publisher, error) {
		calls++
		return nil, dialErr
	}, quietLogger())
	if !errors.Is(err, dialErr) {
		t.Fatalf("Connect() error = %v, want wrapped %v", err, dialErr)
	}
	if calls != 2 {
		t.Errorf("dial calls = %d, want 2", calls)
	}
}

func TestConnect_StopsWaitingOnCancel(t *testing.T) {
	policy := RetryPolicy{Attempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Connect(ctx, policy, func() (Publisher, error) {
		calls++
		return nil, errors.New("connection refused")
	}, quietLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Connect() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("dial calls = %d, want 1", calls)
	}
}

func TestConnect_ZeroAttemptsTriesOnce(t *testing.T) {
	calls := 0
	_, err := Connect(context.Background(), RetryPolicy{}, func() (Publisher, error) {
		calls++
		return nil, errors.New("down")
	}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("dial calls = %d, want 1", calls)
	}
}

package immich

import (
	"context"
	"errors"
	"testing"
	"time"
)

func transient() error {
	return &TransientError{Method: "GET", Path: "/x", Err: context.DeadlineExceeded}
}

func TestRetryPolicyDelays(t *testing.T) {
	policy := ReadRetryPolicy()

	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
	for i, w := range want {
		if got := policy.NextDelay(i + 1); got != w {
			t.Errorf("NextDelay(%d) = %v, want %v", i+1, got, w)
		}
	}

	write := WriteRetryPolicy()
	if got := write.NextDelay(1); got != 300*time.Millisecond {
		t.Errorf("write NextDelay(1) = %v, want 300ms", got)
	}
}

func TestRetryPolicyMaxDelayCap(t *testing.T) {
	policy := &RetryPolicy{
		MaxAttempts:  10,
		InitialDelay: time.Second,
		Multiplier:   10,
		MaxDelay:     5 * time.Second,
	}
	if got := policy.NextDelay(6); got != policy.MaxDelay {
		t.Errorf("delay %v not capped at %v", got, policy.MaxDelay)
	}
}

func TestRetryPolicyOnlyTransient(t *testing.T) {
	policy := ReadRetryPolicy()

	if !policy.ShouldRetry(transient(), 1) {
		t.Error("expected timeout to be retryable")
	}
	if policy.ShouldRetry(transient(), 3) {
		t.Error("should not retry after max attempts")
	}
	if policy.ShouldRetry(&StatusError{StatusCode: 504}, 1) {
		t.Error("status errors must not be retried")
	}
	if policy.ShouldRetry(errors.New("connection refused"), 1) {
		t.Error("non-timeout errors must not be retried")
	}
	if policy.ShouldRetry(nil, 1) {
		t.Error("nil error should not be retryable")
	}
}

func TestRetryPolicyExecuteSuccess(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}
	calls := 0

	err := policy.Execute(context.Background(), func() error {
		calls++
		if calls < 3 {
			return transient()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyExecuteExhausted(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}
	calls := 0

	err := policy.Execute(context.Background(), func() error {
		calls++
		return transient()
	})
	if !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPolicyExecuteNonRetryable(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2}
	calls := 0
	rejection := &StatusError{Method: "GET", Path: "/x", StatusCode: 500}

	err := policy.Execute(context.Background(), func() error {
		calls++
		return rejection
	})
	if !errors.Is(err, rejection) {
		t.Fatalf("expected the rejection back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryPolicyExecuteCanceledDuringBackoff(t *testing.T) {
	policy := &RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	done := make(chan error, 1)
	go func() {
		done <- policy.Execute(ctx, func() error {
			calls++
			return transient()
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !IsTransient(err) {
			t.Errorf("expected last transient error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return after cancel")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

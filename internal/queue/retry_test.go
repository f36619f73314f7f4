package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_SucceedsAfterFailures(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("transient")
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

func TestRetryPolicy_GivesUpAfterMaxRetries(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}
	boom := errors.New("boom")

	calls := 0
	err := policy.Do(context.Background(), func(int) error {
		calls++
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	// One attempt plus three retries.
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, Backoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func(int) error {
			calls++
			return errors.New("fail")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error")
		}
	case <-time.After(time.Second):
		t.Fatal("retry loop did not stop on cancel")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxRetries != 3 || p.Backoff != 5*time.Second {
		t.Errorf("unexpected default policy %+v", p)
	}
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		BaseInterval: time.Millisecond,
		Factor:       2.0,
		MaxAttempts:  3,
		Jitter:       NoJitter,
	}
}

func TestDoReturnsNilOnFirstSuccess(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoSurfacesLastErrorOnExhaustion(t *testing.T) {
	calls := 0
	lastErr := errors.New("still broken")
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return lastErr
	})
	if !errors.Is(err, lastErr) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected exactly MaxAttempts calls, got %d", calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := Policy{
		BaseInterval: time.Hour, // would block forever without cancellation
		Factor:       2.0,
		MaxAttempts:  2,
		Jitter:       NoJitter,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, func() error { return errors.New("transient") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDoUsesInjectedJitter(t *testing.T) {
	var delays []time.Duration
	policy := Policy{
		BaseInterval: 100 * time.Millisecond,
		Factor:       2.0,
		MaxAttempts:  3,
		Jitter: func(d time.Duration) time.Duration {
			delays = append(delays, d)
			return 0 // don't actually sleep
		},
	}

	_ = policy.Do(context.Background(), func() error { return errors.New("transient") })

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("expected %d backoff waits, got %d", len(want), len(delays))
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d: expected %s, got %s", i, want[i], delays[i])
		}
	}
}

func TestFullJitterStaysWithinBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := FullJitter(50 * time.Millisecond)
		if d < 0 || d > 50*time.Millisecond {
			t.Fatalf("jittered delay %s out of [0, 50ms]", d)
		}
	}
	if FullJitter(0) != 0 {
		t.Fatal("zero delay should stay zero")
	}
}

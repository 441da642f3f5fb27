package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// permErr is a non-retryable error for tests.
type permErr struct{ msg string }

func (e *permErr) Error() string   { return e.msg }
func (e *permErr) Transient() bool { return false }

// transErr is an explicitly retryable error for tests.
type transErr struct{ msg string }

func (e *transErr) Error() string   { return e.msg }
func (e *transErr) Transient() bool { return true }

// fastPolicy keeps test backoff waits negligible.
func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func Test_Do_SucceedsFirstTry(t *testing.T) {
	t.Parallel()
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 1 {
		t.Errorf("want 1 call, got %d", calls)
	}
}

func Test_Do_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &transErr{msg: "temporarily unavailable"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("want 3 calls, got %d", calls)
	}
}

func Test_Do_ExhaustionReturnsOriginalError(t *testing.T) {
	t.Parallel()
	calls := 0
	original := &transErr{msg: "backend down"}
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return original
	})
	if calls != 3 {
		t.Errorf("want exactly 3 attempts, got %d", calls)
	}
	if !errors.Is(err, original) {
		t.Errorf("want original error returned, got %v", err)
	}
}

func Test_Do_PermanentErrorStopsImmediately(t *testing.T) {
	t.Parallel()
	calls := 0
	original := &permErr{msg: "bad request"}
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return original
	})
	if calls != 1 {
		t.Errorf("want 1 attempt for permanent error, got %d", calls)
	}
	if !errors.Is(err, original) {
		t.Errorf("want original error returned, got %v", err)
	}
}

func Test_Do_UnknownErrorsAreRetried(t *testing.T) {
	t.Parallel()
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("connection reset")
	})
	if calls != 3 {
		t.Errorf("want 3 attempts for plain error, got %d", calls)
	}
	if err == nil {
		t.Error("want error after exhaustion")
	}
}

func Test_Do_ContextCancellationNotRetried(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := fastPolicy().Do(ctx, func() error {
		calls++
		cancel()
		return ctx.Err()
	})
	if calls != 1 {
		t.Errorf("want 1 attempt after cancellation, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
}

func Test_Do_OnRetryHookObservesFailedAttempts(t *testing.T) {
	t.Parallel()
	var observed []int
	p := fastPolicy()
	p.OnRetry = func(attempt int, err error) {
		observed = append(observed, attempt)
	}
	_ = p.Do(context.Background(), func() error {
		return &transErr{msg: "flaky"}
	})
	// The final attempt fails without a retry following it, so only the
	// first two attempts are observed.
	if len(observed) != 2 || observed[0] != 1 || observed[1] != 2 {
		t.Errorf("want hook calls for attempts [1 2], got %v", observed)
	}
}

func Test_Retryable(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient marker", &transErr{msg: "x"}, true},
		{"permanent marker", &permErr{msg: "x"}, false},
		{"wrapped permanent marker", fmt.Errorf("call failed: %w", &permErr{msg: "x"}), false},
		{"plain error", errors.New("boom"), true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Errorf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

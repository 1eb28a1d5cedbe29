package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"429", &StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"503", &StatusError{StatusCode: http.StatusServiceUnavailable}, true},
		{"400", &StatusError{StatusCode: http.StatusBadRequest}, false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	var waits []time.Duration
	p := RetryPolicy{
		Retries: 3,
		Base:    time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}
	_, err := Retry(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &StatusError{StatusCode: http.StatusBadGateway}
		}
		return "", &StatusError{StatusCode: http.StatusUnauthorized}
	})
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 error, got %v", err)
	}
	if calls != 2 || len(waits) != 1 {
		t.Fatalf("calls=%d waits=%v", calls, waits)
	}
	if waits[0] < 800*time.Millisecond || waits[0] > 1200*time.Millisecond {
		t.Fatalf("first wait should be 1s +/- 20%%, got %v", waits[0])
	}
}

func TestRetryGivesUpAfterRetries(t *testing.T) {
	calls, retried := 0, 0
	p := RetryPolicy{
		Retries: 2,
		Base:    10 * time.Millisecond,
		Sleep:   func(context.Context, time.Duration) error { return nil },
		OnRetry: func(int, time.Duration, error) { retried++ },
	}
	out, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 7, &StatusError{StatusCode: http.StatusServiceUnavailable}
	})
	if err == nil || out != 0 {
		t.Fatalf("want zero value and error, got %d %v", out, err)
	}
	if calls != 3 || retried != 2 {
		t.Fatalf("calls=%d retried=%d", calls, retried)
	}
}

func TestSleepContextReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := SleepContext(ctx, time.Hour); err == nil {
		t.Fatalf("SleepContext: expected error for cancelled context")
	}
}

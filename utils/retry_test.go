package utils

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var buf bytes.Buffer
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewWriterLogger(&buf)}

	calls := 0
	err := r.Do(context.Background(), "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
	if !strings.Contains(buf.String(), "flaky failed (attempt 1/3)") {
		t.Errorf("expected a retry warning, got %q", buf.String())
	}
}

func TestRetryGivesUp(t *testing.T) {
	boom := errors.New("boom")
	r := &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond}

	err := r.Do(context.Background(), "op", func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("error: got %v, want wrapped %v", err, boom)
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("error message: got %q", err.Error())
	}
}

func TestRetrySingleAttemptReturnsRawError(t *testing.T) {
	boom := errors.New("boom")
	r := &RetryConfig{MaxAttempts: 1}

	if err := r.Do(context.Background(), "op", func() error { return boom }); err != boom {
		t.Errorf("error: got %v, want %v unwrapped", err, boom)
	}
}

func TestRetrySkipsNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	r := &RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	calls := 0
	err := r.Do(context.Background(), "op", func() error {
		calls++
		return fatal
	})
	if err != fatal {
		t.Errorf("error: got %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour}

	calls := 0
	start := time.Now()
	_ = r.Do(ctx, "op", func() error {
		calls++
		return errors.New("temporary")
	})
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled retry should not sleep")
	}
}

package relay

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestErrorFormatting(t *testing.T) {
	base := errors.New("connection reset")
	err := ErrDelivery("failed to send message", base)

	if got := err.Error(); got != "[DELIVERY_ERROR] failed to send message: connection reset" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, base) {
		t.Error("expected errors.Is to find the wrapped cause")
	}

	var relayErr *Error
	if !errors.As(err, &relayErr) {
		t.Fatal("expected errors.As to unwrap *Error")
	}
	if relayErr.Code != ErrCodeDelivery {
		t.Errorf("Code = %q, want %q", relayErr.Code, ErrCodeDelivery)
	}
}

func TestErrorWithoutCause(t *testing.T) {
	err := ErrConfig("token is required", nil)
	if got := err.Error(); got != "[CONFIG_ERROR] token is required" {
		t.Errorf("Error() = %q", got)
	}
	if errors.Unwrap(err) != nil {
		t.Error("expected nil unwrap")
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Fatalf("expected burst token %d to be available", i)
		}
	}
	if rl.Allow() {
		t.Fatal("expected bucket to be empty after burst")
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	rl.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter(100, 1)
	rl.Allow() // drain

	time.Sleep(30 * time.Millisecond)
	if !rl.Allow() {
		t.Fatal("expected token after refill interval")
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordMessageSent()
	m.RecordMessageSent()
	m.RecordMessageReceived()
	m.RecordMessageFailed()
	m.RecordError(ErrCodeDelivery)
	m.RecordError(ErrCodeDelivery)
	m.RecordError(ErrCodeRateLimit)

	snap := m.Snapshot()
	if snap.MessagesSent != 2 {
		t.Errorf("MessagesSent = %d, want 2", snap.MessagesSent)
	}
	if snap.MessagesReceived != 1 {
		t.Errorf("MessagesReceived = %d, want 1", snap.MessagesReceived)
	}
	if snap.MessagesFailed != 1 {
		t.Errorf("MessagesFailed = %d, want 1", snap.MessagesFailed)
	}
	if snap.ErrorsByCode[ErrCodeDelivery] != 2 {
		t.Errorf("delivery errors = %d, want 2", snap.ErrorsByCode[ErrCodeDelivery])
	}
	if snap.ErrorsByCode[ErrCodeRateLimit] != 1 {
		t.Errorf("rate limit errors = %d, want 1", snap.ErrorsByCode[ErrCodeRateLimit])
	}
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matthieukhl/loyaltydesk/internal/apperr"
)

func fastPolicy() Policy {
	return Policy{MaxRetries: 2, Delay: time.Millisecond}
}

func TestDoSucceedsAfterTwoFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), "lookup", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("network down")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("got %q, want ok", got)
	}
	if calls != 3 {
		t.Errorf("op invoked %d times, want 3", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 2, 4} {
		calls := 0
		last := errors.New("still failing")
		p := Policy{MaxRetries: maxRetries, Delay: time.Millisecond}
		_, err := Do(context.Background(), p, "token", func(ctx context.Context) (int, error) {
			calls++
			return 0, last
		})
		if !errors.Is(err, last) {
			t.Fatalf("maxRetries=%d: err = %v, want last error", maxRetries, err)
		}
		if calls != maxRetries+1 {
			t.Errorf("maxRetries=%d: op invoked %d times, want %d", maxRetries, calls, maxRetries+1)
		}
	}
}

func TestDoStopsOnDomainError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), "submit", func(ctx context.Context) (int, error) {
		calls++
		return 0, apperr.DomainErr("order already converted")
	})
	if !apperr.Is(err, apperr.Domain) {
		t.Fatalf("err = %v, want domain error", err)
	}
	if calls != 1 {
		t.Errorf("op invoked %d times, want 1", calls)
	}
}

func TestDoStopsOnAuthError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), "query", func(ctx context.Context) (int, error) {
		calls++
		return 0, apperr.AuthErr(errors.New("invalid_client"))
	})
	if !apperr.Is(err, apperr.Auth) {
		t.Fatalf("err = %v, want auth error", err)
	}
	if calls != 1 {
		t.Errorf("op invoked %d times, want 1", calls)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	cause := errors.New("bad config")
	_, err := Do(context.Background(), fastPolicy(), "token", func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(cause)
	})
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want cause", err)
	}
	if calls != 1 {
		t.Errorf("op invoked %d times, want 1", calls)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{MaxRetries: 5, Delay: time.Hour}
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, "query", func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("unavailable")
		})
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("op invoked %d times, want 1", calls)
	}
}

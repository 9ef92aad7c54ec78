package booking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("always approves at rate 1", func(t *testing.T) {
		for range 50 {
			if ok, _ := (MockGateway{SuccessRate: 1}).Attempt(ctx, 1, "A->B"); !ok {
				t.Fatalf("expected approval")
			}
		}
	})

	t.Run("always declines at rate 0", func(t *testing.T) {
		for range 50 {
			if ok, _ := (MockGateway{SuccessRate: 0}).Attempt(ctx, 1, "A->B"); ok {
				t.Fatalf("expected decline")
			}
		}
	})

	t.Run("latency honours context", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		ok, err := (MockGateway{SuccessRate: 1, Latency: time.Second}).Attempt(ctx, 1, "A->B")
		if ok || !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got ok=%v err=%v", ok, err)
		}
	})
}

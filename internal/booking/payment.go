package booking

import (
	"context"
	"math/rand/v2"
	"time"
)

// PaymentGateway charges for seats on a route. A false result with a nil
// error is a decline.
type PaymentGateway interface {
	Attempt(ctx context.Context, seats int, route string) (bool, error)
}

type PaymentFunc func(ctx context.Context, seats int, route string) (bool, error)

func (f PaymentFunc) Attempt(ctx context.Context, seats int, route string) (bool, error) {
	return f(ctx, seats, route)
}

// MockGateway approves with a fixed probability regardless of seats or route.
type MockGateway struct {
	SuccessRate float64
	Latency     time.Duration
}

func (g MockGateway) Attempt(ctx context.Context, _ int, _ string) (bool, error) {
	if g.Latency > 0 {
		t := time.NewTimer(g.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return rand.Float64() < g.SuccessRate, nil
}

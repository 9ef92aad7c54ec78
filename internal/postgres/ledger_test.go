package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ariefcatur/go-metro-booking/internal/booking"
	"github.com/ariefcatur/go-metro-booking/internal/clock"
)

func newTestLedger(t *testing.T, clk clock.Clock) *Ledger {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Skipf("skipping Postgres integration tests: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return &Ledger{DB: pool, Clock: clk}
}

func TestLedger(t *testing.T) {
	now := time.Date(2025, 10, 17, 18, 0, 0, 0, time.UTC)
	l := newTestLedger(t, clock.NewFake(now))
	ctx := context.Background()
	prefix := fmt.Sprintf("T%d", time.Now().UnixNano())

	rec := booking.Record{
		Ref:         prefix + "-1",
		Source:      "Majestic",
		Destination: "Indiranagar",
		At:          "2025-10-17 18:30",
		Seats:       3,
		CreatedAt:   now,
	}
	t.Cleanup(func() { _, _ = l.DB.Exec(ctx, `DELETE FROM bookings WHERE ref LIKE $1`, prefix+"%") })

	t.Run("round trip and upsert", func(t *testing.T) {
		if err := l.Put(ctx, rec); err != nil {
			t.Fatalf("put: %v", err)
		}
		rec.Seats = 4
		if err := l.Put(ctx, rec); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		got, err := l.Get(ctx, rec.Ref)
		if err != nil || got == nil {
			t.Fatalf("expected record, got %v err=%v", got, err)
		}
		if got.Seats != 4 || !got.CreatedAt.Equal(now) {
			t.Fatalf("unexpected record %+v", *got)
		}
	})

	t.Run("unknown ref is absent", func(t *testing.T) {
		got, err := l.Get(ctx, prefix+"-missing")
		if err != nil || got != nil {
			t.Fatalf("expected nil, nil, got %v, %v", got, err)
		}
	})

	t.Run("purge keeps records at the boundary", func(t *testing.T) {
		old := rec
		old.Ref = prefix + "-old"
		old.CreatedAt = now.Add(-2 * time.Hour)
		if err := l.Put(ctx, old); err != nil {
			t.Fatalf("put: %v", err)
		}
		n, err := l.PurgeOlderThan(ctx, time.Hour)
		if err != nil {
			t.Fatalf("purge: %v", err)
		}
		if n < 1 {
			t.Fatalf("expected at least 1 purged, got %d", n)
		}
		if got, _ := l.Get(ctx, old.Ref); got != nil {
			t.Fatalf("expected old record purged")
		}
		if got, _ := l.Get(ctx, rec.Ref); got == nil {
			t.Fatalf("expected recent record kept")
		}
	})
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-metro-booking/internal/booking"
	"github.com/ariefcatur/go-metro-booking/internal/clock"
)

// Ledger is the shared booking ledger for multi-instance deployments.
type Ledger struct {
	DB    *pgxpool.Pool
	Clock clock.Clock
}

func (l *Ledger) Put(ctx context.Context, rec booking.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := l.DB.Exec(ctx, `
		INSERT INTO bookings (ref, source, destination, at, seats, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ref) DO UPDATE SET
			source = EXCLUDED.source,
			destination = EXCLUDED.destination,
			at = EXCLUDED.at,
			seats = EXCLUDED.seats,
			created_at = EXCLUDED.created_at`,
		rec.Ref, rec.Source, rec.Destination, rec.At, rec.Seats, rec.CreatedAt.Truncate(booking.LedgerResolution).UTC())
	if err != nil {
		return fmt.Errorf("postgres ledger: put %s: %w", rec.Ref, err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, ref string) (*booking.Record, error) {
	var rec booking.Record
	err := l.DB.QueryRow(ctx,
		`SELECT ref, source, destination, at, seats, created_at FROM bookings WHERE ref = $1`, ref,
	).Scan(&rec.Ref, &rec.Source, &rec.Destination, &rec.At, &rec.Seats, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres ledger: get %s: %w", ref, err)
	}
	return &rec, nil
}

func (l *Ledger) PurgeOlderThan(ctx context.Context, age time.Duration) (int, error) {
	now := time.Now()
	if l.Clock != nil {
		now = l.Clock.Now()
	}
	tag, err := l.DB.Exec(ctx, `DELETE FROM bookings WHERE created_at < $1`, now.Add(-age).UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres ledger: purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

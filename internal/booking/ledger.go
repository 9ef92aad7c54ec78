package booking

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidRecord     = errors.New("invalid booking record")
	ErrLedgerUnavailable = errors.New("booking ledger unavailable")
)

// LedgerResolution is the precision of Record.CreatedAt once stored.
// Book produces timestamps already at this resolution.
const LedgerResolution = time.Second

// Ledger is the durable store of confirmed bookings, addressed by ref.
type Ledger interface {
	// Put inserts or replaces the record with the same ref. CreatedAt is
	// truncated to LedgerResolution.
	Put(ctx context.Context, rec Record) error
	// Get returns nil, nil when ref is unknown.
	Get(ctx context.Context, ref string) (*Record, error)
	// PurgeOlderThan deletes records with created_at < now-age.
	PurgeOlderThan(ctx context.Context, age time.Duration) (int, error)
}

func (r Record) Validate() error {
	if r.Ref == "" {
		return errors.Join(ErrInvalidRecord, errors.New("empty ref"))
	}
	if r.Seats < 1 {
		return errors.Join(ErrInvalidRecord, errors.New("seats must be at least 1"))
	}
	return nil
}

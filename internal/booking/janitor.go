package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-metro-booking/internal/metrics"
)

const DefaultRetention = 7 * 24 * time.Hour

// Janitor purges bookings past their retention, once at start and then
// every Interval.
type Janitor struct {
	Ledger    Ledger
	Retention time.Duration
	Interval  time.Duration
	Logger    *slog.Logger
}

func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	retention := j.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	n, err := j.Ledger.PurgeOlderThan(ctx, retention)
	if err != nil {
		return 0, err
	}
	metrics.BookingsPurged.Add(float64(n))
	if n > 0 && j.Logger != nil {
		j.Logger.Info("purged old bookings", "count", n, "retention", retention)
	}
	return n, nil
}

// Run blocks until ctx is done. Sweep errors are logged, not returned.
func (j *Janitor) Run(ctx context.Context) error {
	interval := j.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	j.sweepLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.sweepLogged(ctx)
		}
	}
}

func (j *Janitor) sweepLogged(ctx context.Context) {
	if _, err := j.Sweep(ctx); err != nil && j.Logger != nil {
		j.Logger.Warn("purge old bookings", "error", err)
	}
}

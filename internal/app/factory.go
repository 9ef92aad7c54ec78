// Package app builds the infrastructure shared by the binaries from
// config, caching each client so it is opened at most once.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-metro-booking/internal/availability"
	"github.com/ariefcatur/go-metro-booking/internal/booking"
	"github.com/ariefcatur/go-metro-booking/internal/clock"
	"github.com/ariefcatur/go-metro-booking/internal/config"
	kafkax "github.com/ariefcatur/go-metro-booking/internal/kafka"
	"github.com/ariefcatur/go-metro-booking/internal/postgres"
	"github.com/ariefcatur/go-metro-booking/internal/redisx"
	"github.com/ariefcatur/go-metro-booking/internal/sqlite"
)

const connectAttempts = 5

type Factory struct {
	cfg   config.Config
	log   *slog.Logger
	clock clock.Clock

	pg       *pgxpool.Pool
	lite     *sqlite.Ledger
	rdb      *redis.Client
	producer *kafkax.Producer
}

func NewFactory(cfg config.Config, log *slog.Logger) *Factory {
	return &Factory{cfg: cfg, log: log, clock: clock.NewSystem()}
}

func (f *Factory) Clock() clock.Clock { return f.clock }

// Ledger opens the store selected by LEDGER_DRIVER.
func (f *Factory) Ledger(ctx context.Context) (booking.Ledger, error) {
	switch f.cfg.LedgerDriver {
	case "postgres":
		pool, err := f.postgres(ctx)
		if err != nil {
			return nil, err
		}
		return &postgres.Ledger{DB: pool, Clock: f.clock}, nil
	default:
		if f.lite == nil {
			l, err := sqlite.Open(f.cfg.SQLitePath, f.clock, f.log)
			if err != nil {
				return nil, err
			}
			f.lite = l
		}
		return f.lite, nil
	}
}

func (f *Factory) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if f.pg != nil {
		return f.pg, nil
	}
	var (
		pool *pgxpool.Pool
		err  error
	)
	for i := 1; i <= connectAttempts; i++ {
		if pool, err = postgres.Connect(ctx, f.cfg.PostgresDSN); err == nil {
			break
		}
		f.log.Warn("postgres not ready", "attempt", i, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("postgres after %d attempts: %w", connectAttempts, err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	f.pg = pool
	return pool, nil
}

func (f *Factory) Redis(ctx context.Context) (*redis.Client, error) {
	if f.rdb != nil {
		return f.rdb, nil
	}
	rdb, err := redisx.Connect(ctx, f.cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	f.rdb = rdb
	return rdb, nil
}

// Availability picks the pool selected by AVAILABILITY_BACKEND.
func (f *Factory) Availability(ctx context.Context) (booking.Availability, error) {
	if f.cfg.AvailabilityBackend == "redis" {
		rdb, err := f.Redis(ctx)
		if err != nil {
			return nil, err
		}
		return redisx.NewAvailability(rdb, f.cfg.SeatCapacity, f.cfg.AvailabilityTTL, f.clock), nil
	}
	return availability.NewMemory(f.cfg.SeatCapacity, f.cfg.AvailabilityTTL, f.clock), nil
}

// Producer returns nil when KAFKA_BROKERS is empty; events are then
// not published.
func (f *Factory) Producer(ctx context.Context) *kafkax.Producer {
	if len(f.cfg.KafkaBrokers) == 0 {
		return nil
	}
	if f.producer == nil {
		f.producer = kafkax.NewProducer(f.cfg.KafkaBrokers, 1024, f.log)
		f.producer.Start(ctx)
	}
	return f.producer
}

// Close flushes the producer before closing stores.
func (f *Factory) Close() {
	if f.producer != nil {
		f.producer.Close()
		f.producer.WaitClosed()
	}
	if f.rdb != nil {
		_ = f.rdb.Close()
	}
	if f.pg != nil {
		f.pg.Close()
	}
	if f.lite != nil {
		_ = f.lite.Close()
	}
}

// NewLogger is the JSON slog logger every binary uses.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With("service", cfg.ServiceName)
}

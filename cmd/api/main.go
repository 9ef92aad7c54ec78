package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-metro-booking/internal/app"
	"github.com/ariefcatur/go-metro-booking/internal/booking"
	"github.com/ariefcatur/go-metro-booking/internal/config"
	"github.com/ariefcatur/go-metro-booking/internal/httpx"
	"github.com/ariefcatur/go-metro-booking/internal/redisx"
	"github.com/ariefcatur/go-metro-booking/internal/ticket"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		app.NewLogger(config.Config{ServiceName: "booking-api"}, os.Stderr).Error("load config", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := app.NewFactory(cfg, logger)
	defer f.Close()

	ledger, err := f.Ledger(ctx)
	if err != nil {
		logger.Error("open ledger", "driver", cfg.LedgerDriver, "error", err)
		os.Exit(1)
	}
	avail, err := f.Availability(ctx)
	if err != nil {
		logger.Error("open availability", "backend", cfg.AvailabilityBackend, "error", err)
		os.Exit(1)
	}

	svc := &booking.Service{
		Availability:   avail,
		Payments:       booking.MockGateway{SuccessRate: cfg.PaymentSuccessRate},
		Ledger:         ledger,
		Tickets:        ticket.NewQRRenderer(cfg.TicketsDir),
		Clock:          f.Clock(),
		Logger:         logger,
		Issuer:         booking.Issuer{Prefix: cfg.IssuerPrefix, Name: cfg.IssuerName},
		ServiceName:    cfg.ServiceName,
		PaymentTimeout: cfg.PaymentTimeout,
		LedgerAttempts: cfg.LedgerWriteAttempts,
	}
	if p := f.Producer(ctx); p != nil {
		svc.Events = p
	}

	handler := &httpx.BookingsHandler{Service: svc, TicketsDir: cfg.TicketsDir, Logger: logger}
	if cfg.AvailabilityBackend == "redis" {
		// the redis client already exists for availability
		rdb, _ := f.Redis(ctx)
		handler.Idempotency = redisx.NewIdempotencyStore(rdb)
	}
	router := httpx.NewRouter(logger)
	handler.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	janitor := &booking.Janitor{
		Ledger:    ledger,
		Retention: cfg.BookingRetention,
		Interval:  cfg.PurgeInterval,
		Logger:    logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return janitor.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		// in-flight bookings must finish before the producer closes
		shutdownCtx, cancel := context.WithTimeout(context.Background(), svc.MaxAttemptDuration()+5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("api exited", "error", err)
		f.Close()
		os.Exit(1)
	}
}

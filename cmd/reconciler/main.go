package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-metro-booking/internal/app"
	"github.com/ariefcatur/go-metro-booking/internal/booking"
	"github.com/ariefcatur/go-metro-booking/internal/config"
	kafkax "github.com/ariefcatur/go-metro-booking/internal/kafka"
	"github.com/ariefcatur/go-metro-booking/internal/reconcile"
	"github.com/ariefcatur/go-metro-booking/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		app.NewLogger(config.Config{ServiceName: "booking-reconciler"}, os.Stderr).Error("load config", "error", err)
		os.Exit(1)
	}
	cfg.ServiceName += "-reconciler"
	logger := app.NewLogger(cfg, os.Stdout)
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := app.NewFactory(cfg, logger)
	defer f.Close()

	ledger, err := f.Ledger(ctx)
	if err != nil {
		logger.Error("open ledger", "driver", cfg.LedgerDriver, "error", err)
		os.Exit(1)
	}

	svc := &reconcile.Service{Ledger: ledger, Logger: logger}
	if rdb, err := f.Redis(ctx); err != nil {
		logger.Warn("redis unavailable, running without event dedup", "error", err)
	} else {
		svc.Dedup = redisx.NewDeduper(rdb, "reconciler")
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReconcilerGroup, booking.TopicBookingUnrecorded, cfg.ReconcilerWorkers, logger)
	logger.Info("reconciler consumer started",
		"group", cfg.ReconcilerGroup,
		"topic", booking.TopicBookingUnrecorded,
		"workers", cfg.ReconcilerWorkers,
	)
	if err := cons.Start(ctx, svc.HandleBookingUnrecorded); err != nil {
		logger.Error("consumer exit", "error", err)
		f.Close()
		os.Exit(1)
	}
	logger.Info("reconciler stopped")
}

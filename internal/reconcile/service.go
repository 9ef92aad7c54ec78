// Package reconcile writes bookings whose payment was captured but whose
// ledger write failed, from the booking.unrecorded event stream.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-metro-booking/internal/booking"
	kafkax "github.com/ariefcatur/go-metro-booking/internal/kafka"
	"github.com/ariefcatur/go-metro-booking/internal/metrics"
)

// Deduper is satisfied by redisx.Deduper.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type Service struct {
	Ledger booking.Ledger
	Dedup  Deduper // optional
	Logger *slog.Logger
}

// HandleBookingUnrecorded is installed as the consumer handler. A nil
// return commits the offset.
func (s *Service) HandleBookingUnrecorded(ctx context.Context, m kafkago.Message) error {
	var env booking.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message; committing it is the only way forward
		s.logger().Error("decode envelope", "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != booking.EventBookingUnrecorded {
		return nil
	}
	log := s.logger().With("event_id", env.EventID, "ref", env.CorrelationID, "trace_id", env.TraceID)

	if s.Dedup != nil {
		first, err := s.Dedup.FirstSeen(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if !first {
			log.Debug("duplicate event skipped")
			return nil
		}
	}

	if err := s.reconcile(ctx, log, env); err != nil {
		if s.Dedup != nil {
			if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
				log.Warn("forget dedup mark", "error", ferr)
			}
		}
		return err
	}
	return nil
}

func (s *Service) reconcile(ctx context.Context, log *slog.Logger, env booking.Envelope) error {
	p, err := kafkax.UnwrapPayload[booking.BookingUnrecordedPayload](env.Payload)
	if err != nil {
		log.Error("bad unrecorded payload", "error", err)
		return nil
	}
	if err := p.Record.Validate(); err != nil {
		log.Error("unrecorded payload carries invalid record", "error", err)
		return nil
	}

	existing, err := s.Ledger.Get(ctx, p.Record.Ref)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", p.Record.Ref, err)
	}
	if existing != nil {
		log.Info("booking already recorded")
		return nil
	}
	if err := s.Ledger.Put(ctx, p.Record); err != nil {
		return fmt.Errorf("record %s: %w", p.Record.Ref, err)
	}
	metrics.BookingsReconciled.Inc()
	log.Info("booking reconciled", "slot", p.Slot, "seats", p.Record.Seats)
	return nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

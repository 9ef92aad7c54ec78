package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-metro-booking/internal/clock"
	kafkax "github.com/ariefcatur/go-metro-booking/internal/kafka"
	"github.com/ariefcatur/go-metro-booking/internal/metrics"
	"github.com/ariefcatur/go-metro-booking/internal/ticket"
)

const (
	DefaultPaymentTimeout = 15 * time.Second
	defaultLedgerBackoff  = 100 * time.Millisecond
)

var ErrAvailabilityUnavailable = errors.New("seat availability unavailable")

// Availability is the per-slot seat pool. GetOrReset mutates: it
// refills a missing or stale slot before returning it. Reserve must be
// atomic per slot.
type Availability interface {
	GetOrReset(ctx context.Context, slot string) (int, error)
	Adjust(ctx context.Context, slot string, delta int) (int, error)
	Reserve(ctx context.Context, slot string, seats int) (remaining int, ok bool, err error)
}

type TicketRenderer interface {
	Render(ctx context.Context, p ticket.Payload) (location string, err error)
}

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

type Issuer struct {
	Prefix string // ref prefix, e.g. BMRC
	Name   string // printed on tickets
}

// Service runs one booking attempt per call: reserve seats, charge,
// then record or release. It keeps no state between calls.
type Service struct {
	Availability Availability
	Payments     PaymentGateway
	Ledger       Ledger
	Tickets      TicketRenderer // optional
	Events       Publisher      // optional
	Clock        clock.Clock
	Logger       *slog.Logger
	Issuer       Issuer
	ServiceName  string

	PaymentTimeout time.Duration
	LedgerAttempts int
	LedgerBackoff  time.Duration
}

// Book never fails for business reasons; those are outcomes. The error
// is non-nil only when the seat pool itself cannot be reached, and the
// returned Result still carries a message for the user.
func (s *Service) Book(ctx context.Context, req Request) (Result, error) {
	now := s.now().Truncate(LedgerResolution)
	req.Seats = NormalizeSeats(req.Seats)
	at, ok := ParseDateTime(req.DateTime, now.Location())
	if !ok {
		at = now
	}
	req.DateTime = at.Format(DateTimeLayout)

	key := NewSlotKey(req.Source, req.Destination, at)
	slot := key.String()
	log := s.logger().With("slot", slot, "seats", req.Seats)

	remaining, ok, err := s.Availability.Reserve(ctx, slot, req.Seats)
	if err != nil {
		log.Error("reserve seats", "error", err)
		return Result{Slot: slot, Seats: req.Seats, Message: availabilityDownText},
			fmt.Errorf("%w: %w", ErrAvailabilityUnavailable, err)
	}
	if !ok {
		return s.finish(log, Result{
			Outcome:   OutcomeDeclinedCapacity,
			Slot:      slot,
			Seats:     req.Seats,
			Remaining: remaining,
			Message:   capacityMessage(req, remaining),
		}), nil
	}

	ref := NewRef(s.Issuer.Prefix, now)
	log = log.With("ref", ref)

	// Seats are held from here on. Once payment is captured the commit
	// must not be cut short by the caller going away.
	commitCtx := context.WithoutCancel(ctx)

	if !s.pay(ctx, log, req.Seats, key.Route()) {
		if after, err := s.Availability.Adjust(commitCtx, slot, req.Seats); err != nil {
			log.Error("release held seats", "error", err)
		} else {
			remaining = after
			metrics.SeatsReleased.Add(float64(req.Seats))
		}
		s.publish(commitCtx, TopicPaymentDeclined, EventPaymentDeclined, ref, PaymentDeclinedPayload{
			Ref: ref, Slot: slot, Seats: req.Seats, Reason: "DECLINED",
		})
		return s.finish(log, Result{
			Outcome:   OutcomeDeclinedPayment,
			Ref:       ref,
			Slot:      slot,
			Seats:     req.Seats,
			Remaining: remaining,
			Message:   paymentDeclinedMessage(ref),
		}), nil
	}

	rec := Record{
		Ref:         ref,
		Source:      req.Source,
		Destination: req.Destination,
		At:          req.DateTime,
		Seats:       req.Seats,
		CreatedAt:   now,
	}
	if err := s.record(commitCtx, log, rec); err != nil {
		log.Error("payment captured but booking not recorded", "error", err)
		s.publish(commitCtx, TopicBookingUnrecorded, EventBookingUnrecorded, ref, BookingUnrecordedPayload{
			Record: rec, Slot: slot, Reason: err.Error(),
		})
		return s.finish(log, Result{
			Outcome:   OutcomeFailedPersistence,
			Ref:       ref,
			Slot:      slot,
			Seats:     req.Seats,
			Remaining: remaining,
			Message:   unrecordedMessage(ref),
			Err:       err,
		}), nil
	}

	payload := ticket.Build(ref, req.Source, req.Destination, req.DateTime, req.Seats, s.Issuer.Name, now)
	location := s.render(commitCtx, log, payload)
	s.publish(commitCtx, TopicBookingConfirmed, EventBookingConfirmed, ref, BookingConfirmedPayload{
		Ref:            ref,
		Slot:           slot,
		Source:         req.Source,
		Destination:    req.Destination,
		At:             req.DateTime,
		Seats:          req.Seats,
		Remaining:      remaining,
		TicketLocation: location,
	})
	return s.finish(log, Result{
		Outcome:        OutcomeConfirmed,
		Ref:            ref,
		Slot:           slot,
		Seats:          req.Seats,
		Remaining:      remaining,
		Message:        confirmedMessage(req, ref, req.Seats, remaining, location),
		Ticket:         &payload,
		TicketLocation: location,
	}), nil
}

// Lookup is the status check by ref. Unknown refs are not errors.
func (s *Service) Lookup(ctx context.Context, ref string) (LookupResult, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return LookupResult{Message: missingRefMessage}, nil
	}
	rec, err := s.Ledger.Get(ctx, ref)
	if err != nil {
		s.logger().Error("lookup booking", "ref", ref, "error", err)
		return LookupResult{Message: storeDownMessage}, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	if rec == nil {
		return LookupResult{Message: notFoundMessage}, nil
	}
	return LookupResult{Found: true, Record: rec, Message: lookupMessage(*rec)}, nil
}

// Remaining reads the pool for a route and time. Like GetOrReset it
// refills a stale slot.
func (s *Service) Remaining(ctx context.Context, source, destination, dateTime string) (string, int, error) {
	slot := DeriveSlotKey(source, destination, dateTime, s.now()).String()
	n, err := s.Availability.GetOrReset(ctx, slot)
	if err != nil {
		return slot, 0, fmt.Errorf("%w: %w", ErrAvailabilityUnavailable, err)
	}
	return slot, n, nil
}

// MaxAttemptDuration bounds how long one Book call may keep running
// after its caller has gone: the payment timeout plus every ledger
// backoff. Shutdown must wait at least this long.
func (s *Service) MaxAttemptDuration() time.Duration {
	timeout := s.PaymentTimeout
	if timeout <= 0 {
		timeout = DefaultPaymentTimeout
	}
	backoff := s.LedgerBackoff
	if backoff <= 0 {
		backoff = defaultLedgerBackoff
	}
	total := timeout
	for attempt := 1; attempt < s.LedgerAttempts; attempt++ {
		total += backoff << (attempt - 1)
	}
	return total
}

func (s *Service) pay(ctx context.Context, log *slog.Logger, seats int, route string) bool {
	timeout := s.PaymentTimeout
	if timeout <= 0 {
		timeout = DefaultPaymentTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := s.Payments.Attempt(ctx, seats, route)
	if err != nil {
		log.Warn("payment attempt failed", "error", err)
		return false
	}
	return ok
}

// record writes rec with exponential backoff between attempts.
func (s *Service) record(ctx context.Context, log *slog.Logger, rec Record) error {
	attempts := s.LedgerAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := s.LedgerBackoff
	if backoff <= 0 {
		backoff = defaultLedgerBackoff
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = s.Ledger.Put(ctx, rec); err == nil {
			return nil
		}
		if attempt == attempts || errors.Is(err, ErrInvalidRecord) {
			break
		}
		metrics.LedgerWriteRetries.Inc()
		log.Warn("ledger write failed, retrying", "attempt", attempt, "error", err)
		t := time.NewTimer(backoff << (attempt - 1))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %w", ErrLedgerUnavailable, ctx.Err())
		}
	}
	return fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
}

func (s *Service) render(ctx context.Context, log *slog.Logger, p ticket.Payload) string {
	if s.Tickets == nil {
		return ""
	}
	location, err := s.Tickets.Render(ctx, p)
	if err != nil {
		log.Warn("render ticket", "error", err)
		return ""
	}
	return location
}

func (s *Service) publish(ctx context.Context, topic, eventType, ref string, payload any) {
	if s.Events == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       TraceID(ctx),
		CorrelationID: ref,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Events.Publish(topic, PartitionKey(ref), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) finish(log *slog.Logger, res Result) Result {
	metrics.BookingOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	log.Info("booking attempt finished", "outcome", res.Outcome, "remaining", res.Remaining)
	return res
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

type traceKey struct{}

// WithTraceID attaches the request id copied into published events.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

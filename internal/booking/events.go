package booking

import (
	"encoding/json"
	"time"
)

const (
	EventBookingConfirmed  = "BookingConfirmed"
	EventPaymentDeclined   = "PaymentDeclined"
	EventBookingUnrecorded = "BookingUnrecorded"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // booking ref
	Payload       json.RawMessage `json:"payload"`
}

type BookingConfirmedPayload struct {
	Ref            string `json:"ref"`
	Slot           string `json:"slot"`
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	At             string `json:"at"`
	Seats          int    `json:"seats"`
	Remaining      int    `json:"remaining"`
	TicketLocation string `json:"ticket_location,omitempty"`
}

type PaymentDeclinedPayload struct {
	Ref    string `json:"ref"`
	Slot   string `json:"slot"`
	Seats  int    `json:"seats"`
	Reason string `json:"reason"`
}

// BookingUnrecordedPayload carries the full record so the reconciler
// can write it without any other source.
type BookingUnrecordedPayload struct {
	Record Record `json:"record"`
	Slot   string `json:"slot"`
	Reason string `json:"reason"`
}

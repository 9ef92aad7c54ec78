package booking

import (
	"time"

	"github.com/ariefcatur/go-metro-booking/internal/ticket"
)

// Record is one confirmed booking in the ledger. Immutable once written.
type Record struct {
	Ref         string    `json:"ref"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	At          string    `json:"at"`
	Seats       int       `json:"seats"`
	CreatedAt   time.Time `json:"created_at"`
}

// Request carries the fields collected by the dialogue layer.
type Request struct {
	Source      string
	Destination string
	DateTime    string
	Seats       int
}

type Result struct {
	Outcome   Outcome `json:"outcome"`
	Ref       string  `json:"ref,omitempty"`
	Slot      string  `json:"slot"`
	Seats     int     `json:"seats"`
	Remaining int     `json:"remaining"`
	Message   string  `json:"message"`

	// Set only when confirmed.
	Ticket         *ticket.Payload `json:"ticket,omitempty"`
	TicketLocation string          `json:"ticket_location,omitempty"`

	// Ledger error behind FAILED_PERSISTENCE.
	Err error `json:"-"`
}

type LookupResult struct {
	Found   bool    `json:"found"`
	Record  *Record `json:"booking,omitempty"`
	Message string  `json:"message"`
}

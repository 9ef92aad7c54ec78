package ticket

import (
	"encoding/json"
	"time"
)

// Payload is the canonical ticket record encoded into the QR image.
type Payload struct {
	Ref      string `json:"ref"`
	Route    string `json:"route"`
	At       string `json:"at"`
	Seats    int    `json:"seats"`
	Issuer   string `json:"issuer"`
	IssuedAt int64  `json:"ts"`
}

// Build is pure: the same inputs always give the same payload.
func Build(ref, source, destination, when string, seats int, issuer string, issuedAt time.Time) Payload {
	return Payload{
		Ref:      ref,
		Route:    Route(source, destination),
		At:       when,
		Seats:    seats,
		Issuer:   issuer,
		IssuedAt: issuedAt.Unix(),
	}
}

func Route(source, destination string) string {
	return source + "->" + destination
}

// Encode returns the compact JSON form used as QR content.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

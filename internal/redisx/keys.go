package redisx

import "time"

const (
	// Seat pool per slot: hash avail:{slot} -> remaining, updated_ms
	KeyAvailability = "avail:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Idempotent booking requests: idem:booking:{Idempotency-Key} -> PROCESSING | response
	KeyIdemBooking = "idem:booking:%s"
)

var (
	TTLDedup          = 48 * time.Hour
	TTLIdempotency    = 24 * time.Hour
	TTLIdemProcessing = 30 * time.Second
)

package booking

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// NewRef formats "<prefix>-<unix seconds>-<1000..9999>". Collisions are
// possible within one second; the ledger upserts by ref, so a collision
// overwrites the older record.
func NewRef(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%d", prefix, now.Unix(), 1000+rand.IntN(9000))
}

const MaxSeatsPerBooking = 6

// NormalizeSeats defaults missing or non-positive counts to 1 and caps
// the rest at MaxSeatsPerBooking.
func NormalizeSeats(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxSeatsPerBooking {
		return MaxSeatsPerBooking
	}
	return n
}

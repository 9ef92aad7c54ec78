package booking

import (
	"strings"
	"time"

	"github.com/ariefcatur/go-metro-booking/internal/ticket"
)

// DateTimeLayout is the normalized form produced by the dialogue layer.
const DateTimeLayout = "2006-01-02 15:04"

var fallbackLayouts = []string{
	DateTimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 3:04 PM",
	"2006-01-02 3 PM",
	"2006-01-02",
}

// SlotKey partitions capacity by route and hour.
type SlotKey struct {
	Source      string
	Destination string
	Hour        time.Time
}

func (k SlotKey) Route() string {
	return ticket.Route(k.Source, k.Destination)
}

func (k SlotKey) String() string {
	return k.Route() + "|" + k.Hour.Format(DateTimeLayout)
}

// DeriveSlotKey buckets dateTime to its hour. Text that does not parse
// falls back to now; that is lossy on purpose and never an error.
func DeriveSlotKey(source, destination, dateTime string, now time.Time) SlotKey {
	at, ok := ParseDateTime(dateTime, now.Location())
	if !ok {
		at = now
	}
	return NewSlotKey(source, destination, at)
}

func NewSlotKey(source, destination string, at time.Time) SlotKey {
	return SlotKey{
		Source:      source,
		Destination: destination,
		Hour:        startOfHour(at),
	}
}

// Wall-clock hour in t's zone. Truncate(time.Hour) is wrong for
// half-hour offsets like IST.
func startOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// ParseDateTime tries the normalized layout first, then a few common
// variants, interpreting zoneless text in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

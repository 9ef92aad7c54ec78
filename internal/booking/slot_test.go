package booking

import (
	"testing"
	"time"
)

func TestDeriveSlotKey(t *testing.T) {
	now := time.Date(2025, 10, 17, 9, 12, 0, 0, time.UTC)

	cases := []struct {
		name     string
		dateTime string
		want     string
	}{
		{"normalized", "2025-10-17 18:30", "Majestic->Indiranagar|2025-10-17 18:00"},
		{"on the hour", "2025-10-17 18:00", "Majestic->Indiranagar|2025-10-17 18:00"},
		{"last minute of hour", "2025-10-17 18:59", "Majestic->Indiranagar|2025-10-17 18:00"},
		{"iso with seconds", "2025-10-17T07:45:10", "Majestic->Indiranagar|2025-10-17 07:00"},
		{"twelve hour clock", "2025-10-17 6:30 PM", "Majestic->Indiranagar|2025-10-17 18:00"},
		{"date only", "2025-10-18", "Majestic->Indiranagar|2025-10-18 00:00"},
		{"unparseable falls back to now", "tomorrow evening", "Majestic->Indiranagar|2025-10-17 09:00"},
		{"empty falls back to now", "", "Majestic->Indiranagar|2025-10-17 09:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveSlotKey("Majestic", "Indiranagar", tc.dateTime, now).String()
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestDeriveSlotKey_HalfHourZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 10, 17, 18, 45, 0, 0, ist)

	got := DeriveSlotKey("A", "B", "garbage", now)
	if got.String() != "A->B|2025-10-17 18:00" {
		t.Fatalf("expected local hour bucket, got %q", got.String())
	}
	if got.Hour.Location() != ist {
		t.Fatalf("expected bucket in IST, got %v", got.Hour.Location())
	}
}

func TestParseDateTime(t *testing.T) {
	if _, ok := ParseDateTime("   ", time.UTC); ok {
		t.Fatalf("expected blank input to fail")
	}
	got, ok := ParseDateTime("2025-10-17T18:30:00+05:30", time.UTC)
	if !ok {
		t.Fatalf("expected RFC3339 to parse")
	}
	if _, offset := got.Zone(); offset != 5*3600+1800 {
		t.Fatalf("expected explicit offset kept, got %d", offset)
	}
}

package ticket

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuild(t *testing.T) {
	issued := time.Date(2025, 10, 17, 12, 30, 0, 0, time.UTC)
	got := Build("BMRC-1760704200-1234", "Majestic", "Indiranagar", "2025-10-17 18:00", 3, "BMRC-Demo", issued)

	want := Payload{
		Ref:      "BMRC-1760704200-1234",
		Route:    "Majestic->Indiranagar",
		At:       "2025-10-17 18:00",
		Seats:    3,
		Issuer:   "BMRC-Demo",
		IssuedAt: issued.Unix(),
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if again := Build("BMRC-1760704200-1234", "Majestic", "Indiranagar", "2025-10-17 18:00", 3, "BMRC-Demo", issued); again != got {
		t.Fatalf("expected deterministic payload")
	}
}

func TestEncodeUsesCompactKeys(t *testing.T) {
	p := Build("R-1", "A", "B", "2025-10-17 18:00", 1, "X", time.Unix(100, 0))
	data, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, k := range []string{"ref", "route", "at", "seats", "issuer", "ts"} {
		if _, ok := fields[k]; !ok {
			t.Fatalf("expected key %q in %s", k, data)
		}
	}
}

func TestQRRenderer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tickets")
	r := NewQRRenderer(dir)
	p := Build("BMRC-1-1000", "Majestic", "Nagasandra", "2025-10-17 18:00", 2, "BMRC-Demo", time.Unix(1, 0))

	loc, err := r.Render(context.Background(), p)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if loc != "tickets/BMRC-1-1000.png" {
		t.Fatalf("unexpected location %q", loc)
	}
	info, err := os.Stat(filepath.Join(dir, "BMRC-1-1000.png"))
	if err != nil {
		t.Fatalf("expected image on disk: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected non-empty image")
	}
}

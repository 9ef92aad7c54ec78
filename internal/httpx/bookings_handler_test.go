package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-metro-booking/internal/availability"
	"github.com/ariefcatur/go-metro-booking/internal/booking"
	"github.com/ariefcatur/go-metro-booking/internal/clock"
)

type memLedger struct {
	mu      sync.Mutex
	records map[string]booking.Record
}

func (l *memLedger) Put(_ context.Context, rec booking.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.Ref] = rec
	return nil
}

func (l *memLedger) Get(_ context.Context, ref string) (*booking.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.records[ref]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (l *memLedger) PurgeOlderThan(context.Context, time.Duration) (int, error) { return 0, nil }

type memIdempotency struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memIdempotency) Begin(_ context.Context, key string) (bool, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		m.data[key] = nil
		return true, nil, nil
	}
	return false, v, nil
}

func (m *memIdempotency) Complete(_ context.Context, key string, resp []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = resp
	return nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type testServer struct {
	*httptest.Server
	ledger *memLedger
	idem   *memIdempotency
	dir    string
}

func newTestServer(t *testing.T, approve bool) *testServer {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 10, 17, 17, 0, 0, 0, time.UTC))
	ledger := &memLedger{records: map[string]booking.Record{}}
	svc := &booking.Service{
		Availability: availability.NewMemory(5, 5*time.Minute, clk),
		Payments: booking.PaymentFunc(func(context.Context, int, string) (bool, error) {
			return approve, nil
		}),
		Ledger: ledger,
		Clock:  clk,
		Issuer: booking.Issuer{Prefix: "BMRC", Name: "BMRC-Demo"},
	}
	idem := &memIdempotency{data: map[string][]byte{}}
	dir := t.TempDir()

	r := NewRouter(nil)
	(&BookingsHandler{Service: svc, TicketsDir: dir, Idempotency: idem}).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, ledger: ledger, idem: idem, dir: dir}
}

func (s *testServer) post(t *testing.T, body string, headers map[string]string) (*http.Response, booking.Result) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, s.URL+"/bookings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var res booking.Result
	_ = json.NewDecoder(resp.Body).Decode(&res)
	return resp, res
}

func TestCreateBooking(t *testing.T) {
	t.Run("confirmed is 201", func(t *testing.T) {
		s := newTestServer(t, true)
		resp, res := s.post(t, `{"source":"Majestic","destination":"Indiranagar","date_time":"2025-10-17 18:30","seats":3}`, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}
		if res.Outcome != booking.OutcomeConfirmed || res.Remaining != 2 || res.Ref == "" {
			t.Fatalf("unexpected result %+v", res)
		}
		if len(s.ledger.records) != 1 {
			t.Fatalf("expected one record, got %d", len(s.ledger.records))
		}
	})

	t.Run("seats as string", func(t *testing.T) {
		s := newTestServer(t, true)
		_, res := s.post(t, `{"source":"A","destination":"B","seats":"2"}`, nil)
		if res.Seats != 2 {
			t.Fatalf("expected 2 seats, got %d", res.Seats)
		}
	})

	t.Run("non numeric seats default to one", func(t *testing.T) {
		s := newTestServer(t, true)
		_, res := s.post(t, `{"source":"A","destination":"B","seats":"two"}`, nil)
		if res.Seats != 1 {
			t.Fatalf("expected 1 seat, got %d", res.Seats)
		}
	})

	t.Run("capacity decline is 200", func(t *testing.T) {
		s := newTestServer(t, true)
		resp, res := s.post(t, `{"source":"A","destination":"B","date_time":"2025-10-17 18:00","seats":6}`, nil)
		if resp.StatusCode != http.StatusOK || res.Outcome != booking.OutcomeDeclinedCapacity {
			t.Fatalf("expected 200 capacity decline, got %d %s", resp.StatusCode, res.Outcome)
		}
	})

	t.Run("payment decline is 200 with ref", func(t *testing.T) {
		s := newTestServer(t, false)
		resp, res := s.post(t, `{"source":"A","destination":"B","seats":1}`, nil)
		if resp.StatusCode != http.StatusOK || res.Outcome != booking.OutcomeDeclinedPayment || res.Ref == "" {
			t.Fatalf("unexpected %d %+v", resp.StatusCode, res)
		}
	})

	t.Run("bad input is 400", func(t *testing.T) {
		s := newTestServer(t, true)
		for _, body := range []string{`{`, `{"source":"A"}`} {
			if resp, _ := s.post(t, body, nil); resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("body %s: expected 400, got %d", body, resp.StatusCode)
			}
		}
	})
}

func TestCreateBooking_Idempotency(t *testing.T) {
	s := newTestServer(t, true)
	body := `{"source":"A","destination":"B","date_time":"2025-10-17 18:00","seats":2}`
	h := map[string]string{"Idempotency-Key": "abc-123"}

	first, res1 := s.post(t, body, h)
	second, res2 := s.post(t, body, h)

	if first.StatusCode != http.StatusCreated || second.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 twice, got %d and %d", first.StatusCode, second.StatusCode)
	}
	if second.Header.Get("X-Idempotency-Hit") != "true" {
		t.Fatalf("expected replay header")
	}
	if res1.Ref != res2.Ref {
		t.Fatalf("expected same ref, got %s and %s", res1.Ref, res2.Ref)
	}
	if len(s.ledger.records) != 1 {
		t.Fatalf("expected one booking, got %d", len(s.ledger.records))
	}

	s.idem.data["busy"] = nil
	resp, _ := s.post(t, body, map[string]string{"Idempotency-Key": "busy"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while in progress, got %d", resp.StatusCode)
	}
}

func TestGetBooking(t *testing.T) {
	s := newTestServer(t, true)
	_, created := s.post(t, `{"source":"Majestic","destination":"Indiranagar","seats":2}`, nil)

	resp, err := http.Get(s.URL + "/bookings/" + created.Ref)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var found booking.LookupResult
	_ = json.NewDecoder(resp.Body).Decode(&found)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !found.Found || found.Record.Seats != 2 {
		t.Fatalf("unexpected %d %+v", resp.StatusCode, found)
	}

	resp, _ = http.Get(s.URL + "/bookings/BMRC-0-0000")
	var missing booking.LookupResult
	_ = json.NewDecoder(resp.Body).Decode(&missing)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound || missing.Message != "No booking found for that reference." {
		t.Fatalf("unexpected %d %+v", resp.StatusCode, missing)
	}
}

func TestGetAvailability(t *testing.T) {
	s := newTestServer(t, true)
	s.post(t, `{"source":"A","destination":"B","date_time":"2025-10-17 18:10","seats":2}`, nil)

	resp, err := http.Get(s.URL + "/availability?source=A&destination=B&date_time=2025-10-17%2018:45")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var got AvailabilityResp
	_ = json.NewDecoder(resp.Body).Decode(&got)
	if got.Slot != "A->B|2025-10-17 18:00" || got.Remaining != 3 {
		t.Fatalf("unexpected %+v", got)
	}

	bad, _ := http.Get(s.URL + "/availability?source=A")
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.StatusCode)
	}
}

func TestGetTicket(t *testing.T) {
	s := newTestServer(t, true)
	if err := os.WriteFile(filepath.Join(s.dir, "BMRC-1-1234.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp, _ := http.Get(s.URL + "/tickets/BMRC-1-1234.png")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	for _, p := range []string{"/tickets/secret.txt", "/tickets/missing.png"} {
		resp, _ := http.Get(s.URL + p)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", p, resp.StatusCode)
		}
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, true)
	for _, p := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(s.URL + p)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", p, resp.StatusCode)
		}
	}
}

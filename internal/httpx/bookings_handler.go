package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-metro-booking/internal/booking"
)

// Booker is satisfied by booking.Service.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (booking.Result, error)
	Lookup(ctx context.Context, ref string) (booking.LookupResult, error)
	Remaining(ctx context.Context, source, destination, dateTime string) (string, int, error)
}

type BookingsHandler struct {
	Service     Booker
	TicketsDir  string
	Idempotency IdempotencyStore // optional
	Logger      *slog.Logger
}

type CreateBookingReq struct {
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	DateTime    string          `json:"date_time"`
	Seats       json.RawMessage `json:"seats,omitempty"`
}

type AvailabilityResp struct {
	Slot      string `json:"slot"`
	Remaining int    `json:"remaining"`
}

func (h *BookingsHandler) Register(r chi.Router) {
	r.With(Idempotency(h.Idempotency, h.Logger)).Post("/bookings", h.createBooking)
	r.Get("/bookings/{ref}", h.getBooking)
	r.Get("/availability", h.getAvailability)
	r.Get("/tickets/{file}", h.getTicket)
}

func (h *BookingsHandler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	req.Source = strings.TrimSpace(req.Source)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Source == "" || req.Destination == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing source or destination"})
		return
	}

	ctx := booking.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	res, err := h.Service.Book(ctx, booking.Request{
		Source:      req.Source,
		Destination: req.Destination,
		DateTime:    req.DateTime,
		Seats:       parseSeats(req.Seats),
	})
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": res.Message})
		return
	}
	writeJSON(w, statusFor(res.Outcome), res)
}

func statusFor(o booking.Outcome) int {
	switch o {
	case booking.OutcomeConfirmed:
		return http.StatusCreated
	case booking.OutcomeFailedPersistence:
		return http.StatusAccepted
	default:
		return http.StatusOK
	}
}

// parseSeats accepts 3 or "3"; anything else means the default of one
// seat.
func parseSeats(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 1
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 1
}

func (h *BookingsHandler) getBooking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Service.Lookup(ctx, chi.URLParam(r, "ref"))
	switch {
	case errors.Is(err, booking.ErrLedgerUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, res)
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	case !res.Found:
		writeJSON(w, http.StatusNotFound, res)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *BookingsHandler) getAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source, destination := strings.TrimSpace(q.Get("source")), strings.TrimSpace(q.Get("destination"))
	if source == "" || destination == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing source or destination"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	slot, n, err := h.Service.Remaining(ctx, source, destination, q.Get("date_time"))
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("availability read", "slot", slot, "error", err)
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "availability unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResp{Slot: slot, Remaining: n})
}

func (h *BookingsHandler) getTicket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	if name != filepath.Base(name) || filepath.Ext(name) != ".png" || h.TicketsDir == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	http.ServeFile(w, r, filepath.Join(h.TicketsDir, name))
}

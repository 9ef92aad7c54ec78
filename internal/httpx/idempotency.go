package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// IdempotencyStore is satisfied by redisx.IdempotencyStore.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (claimed bool, stored []byte, err error)
	Complete(ctx context.Context, key string, response []byte) error
	Release(ctx context.Context, key string) error
}

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// Idempotency replays the first response for a repeated Idempotency-Key
// on POST requests. Server errors are not stored so the client may retry.
// When the store is down the request goes through unprotected.
func Idempotency(store IdempotencyStore, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if store == nil || r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			claimed, stored, err := store.Begin(ctx, key)
			if err != nil {
				log.Warn("idempotency store unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				if stored == nil {
					writeJSON(w, http.StatusConflict, map[string]string{"error": "request with this Idempotency-Key is in progress"})
					return
				}
				var resp storedResponse
				if err := json.Unmarshal(stored, &resp); err != nil {
					writeJSON(w, http.StatusConflict, map[string]string{"error": "request already processed"})
					return
				}
				w.Header().Set("X-Idempotency-Hit", "true")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(resp.Status)
				_, _ = w.Write(resp.Body)
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// the booking already happened; keep the bookkeeping even if the client left
			ctx = context.WithoutCancel(ctx)
			if rec.status >= http.StatusInternalServerError {
				if err := store.Release(ctx, key); err != nil {
					log.Warn("release idempotency key", "error", err)
				}
				return
			}
			body := bytes.TrimSpace(rec.body.Bytes())
			if !json.Valid(body) {
				body = []byte("null")
			}
			b, _ := json.Marshal(storedResponse{Status: rec.status, Body: body})
			if err := store.Complete(ctx, key, b); err != nil {
				log.Warn("store idempotent response", "error", err)
			}
		})
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

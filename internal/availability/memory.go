// Package availability holds the process-local seat capacity cache.
//
// Every slot starts at full capacity and refills when it has not been
// touched for the TTL. Reads refresh stale slots, so GetOrReset is a
// mutating accessor.
package availability

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-metro-booking/internal/clock"
)

type record struct {
	mu        sync.Mutex
	remaining int
	refreshed time.Time
}

// Memory is safe for concurrent use. Operations on one key are
// serialized by that key's mutex; different keys never contend beyond
// the map lookup.
type Memory struct {
	capacity int
	ttl      time.Duration
	clock    clock.Clock

	mu      sync.RWMutex
	records map[string]*record
}

func NewMemory(capacity int, ttl time.Duration, clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		clock:    clk,
		records:  make(map[string]*record),
	}
}

func (m *Memory) Capacity() int { return m.capacity }

// GetOrReset returns the remaining seats for key, first resetting the
// record to full capacity when it is missing or older than the TTL.
func (m *Memory) GetOrReset(_ context.Context, key string) (int, error) {
	rec := m.record(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	m.refreshIfStale(rec, m.clock.Now())
	return rec.remaining, nil
}

// Adjust applies delta clamped to [0, capacity]. It does not look at
// staleness; a missing record starts from capacity.
func (m *Memory) Adjust(_ context.Context, key string, delta int) (int, error) {
	rec := m.record(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.remaining = m.clamp(rec.remaining + delta)
	rec.refreshed = m.clock.Now()
	return rec.remaining, nil
}

// Reserve deducts seats only when enough remain. ok is false and
// nothing changes otherwise; remaining is the post-call count either way.
func (m *Memory) Reserve(_ context.Context, key string, seats int) (remaining int, ok bool, err error) {
	rec := m.record(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	now := m.clock.Now()
	m.refreshIfStale(rec, now)
	if seats > rec.remaining {
		return rec.remaining, false, nil
	}
	rec.remaining = m.clamp(rec.remaining - seats)
	rec.refreshed = now
	return rec.remaining, true, nil
}

func (m *Memory) record(key string) *record {
	m.mu.RLock()
	rec, ok := m.records[key]
	m.mu.RUnlock()
	if ok {
		return rec
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		return rec
	}
	// Zero refreshed time marks the record stale so the first read
	// initializes it.
	rec = &record{remaining: m.capacity}
	m.records[key] = rec
	return rec
}

func (m *Memory) refreshIfStale(rec *record, now time.Time) {
	if rec.refreshed.IsZero() || now.Sub(rec.refreshed) > m.ttl {
		rec.remaining = m.capacity
		rec.refreshed = now
	}
}

func (m *Memory) clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > m.capacity {
		return m.capacity
	}
	return n
}

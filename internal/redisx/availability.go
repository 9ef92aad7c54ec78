package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-metro-booking/internal/clock"
)

// Every script treats a hash older than ttl (or missing) as a full pool.
// Keys carry a PEXPIRE of twice the ttl purely for housekeeping: an
// expired key and a stale one read the same.
//
// KEYS[1] = avail:{slot}
// ARGV[1] = capacity, ARGV[2] = ttl ms, ARGV[3] = now ms, ARGV[4] = seats | delta
const getOrResetScript = `
local cap = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local rem = redis.call('HGET', KEYS[1], 'remaining')
local upd = tonumber(redis.call('HGET', KEYS[1], 'updated_ms') or '0')
if (not rem) or (now - upd) > ttl then
  redis.call('HSET', KEYS[1], 'remaining', cap, 'updated_ms', now)
  redis.call('PEXPIRE', KEYS[1], ttl * 2)
  return cap
end
return tonumber(rem)
`

const adjustScript = `
local cap = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local delta = tonumber(ARGV[4])
local rem = tonumber(redis.call('HGET', KEYS[1], 'remaining') or ARGV[1])
rem = rem + delta
if rem < 0 then rem = 0 end
if rem > cap then rem = cap end
redis.call('HSET', KEYS[1], 'remaining', rem, 'updated_ms', now)
redis.call('PEXPIRE', KEYS[1], ttl * 2)
return rem
`

const reserveScript = `
local cap = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local seats = tonumber(ARGV[4])
local rem = redis.call('HGET', KEYS[1], 'remaining')
local upd = tonumber(redis.call('HGET', KEYS[1], 'updated_ms') or '0')
if (not rem) or (now - upd) > ttl then
  rem = cap
  redis.call('HSET', KEYS[1], 'remaining', rem, 'updated_ms', now)
  redis.call('PEXPIRE', KEYS[1], ttl * 2)
else
  rem = tonumber(rem)
end
if seats > rem then
  return {0, rem}
end
rem = rem - seats
redis.call('HSET', KEYS[1], 'remaining', rem, 'updated_ms', now)
redis.call('PEXPIRE', KEYS[1], ttl * 2)
return {1, rem}
`

var (
	getOrReset = redis.NewScript(getOrResetScript)
	adjust     = redis.NewScript(adjustScript)
	reserve    = redis.NewScript(reserveScript)
)

// Availability is the shared seat pool for deployments running more
// than one API instance. Each operation is a single Lua script, so
// check-and-decrement is atomic per slot.
type Availability struct {
	rdb      redis.Scripter
	capacity int
	ttl      time.Duration
	clock    clock.Clock
}

func NewAvailability(rdb redis.Scripter, capacity int, ttl time.Duration, clk clock.Clock) *Availability {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Availability{rdb: rdb, capacity: capacity, ttl: ttl, clock: clk}
}

func (a *Availability) Capacity() int { return a.capacity }

func (a *Availability) GetOrReset(ctx context.Context, slot string) (int, error) {
	n, err := getOrReset.Run(ctx, a.rdb, []string{a.key(slot)}, a.args(0)...).Int()
	if err != nil {
		return 0, fmt.Errorf("availability get %s: %w", slot, err)
	}
	return n, nil
}

func (a *Availability) Adjust(ctx context.Context, slot string, delta int) (int, error) {
	n, err := adjust.Run(ctx, a.rdb, []string{a.key(slot)}, a.args(delta)...).Int()
	if err != nil {
		return 0, fmt.Errorf("availability adjust %s: %w", slot, err)
	}
	return n, nil
}

func (a *Availability) Reserve(ctx context.Context, slot string, seats int) (int, bool, error) {
	res, err := reserve.Run(ctx, a.rdb, []string{a.key(slot)}, a.args(seats)...).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("availability reserve %s: %w", slot, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("availability reserve %s: unexpected reply %v", slot, res)
	}
	return int(res[1]), res[0] == 1, nil
}

func (a *Availability) key(slot string) string {
	return fmt.Sprintf(KeyAvailability, slot)
}

func (a *Availability) args(n int) []any {
	return []any{a.capacity, a.ttl.Milliseconds(), a.clock.Now().UnixMilli(), n}
}

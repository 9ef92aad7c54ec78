package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const idemProcessing = "PROCESSING"

// IdempotencyStore backs the Idempotency-Key header on booking requests.
type IdempotencyStore struct {
	rdb *redis.Client
}

func NewIdempotencyStore(rdb *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb}
}

// Begin claims key. When the key was already claimed, claimed is false
// and stored holds the completed response, or nil while the first
// request is still running.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (claimed bool, stored []byte, err error) {
	k := fmt.Sprintf(KeyIdemBooking, key)
	ok, err := s.rdb.SetNX(ctx, k, idemProcessing, TTLIdemProcessing).Result()
	if err != nil {
		return false, nil, fmt.Errorf("idempotency claim: %w", err)
	}
	if ok {
		return true, nil, nil
	}
	val, err := s.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("idempotency read: %w", err)
	}
	if string(val) == idemProcessing {
		return false, nil, nil
	}
	return false, val, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, response []byte) error {
	return s.rdb.Set(ctx, fmt.Sprintf(KeyIdemBooking, key), response, TTLIdempotency).Err()
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(KeyIdemBooking, key)).Err()
}

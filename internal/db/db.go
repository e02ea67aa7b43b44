package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	KVStore
	SortedSetStore
	ListStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent. Returns true when the write won.
	// This is the storage-level uniqueness guard for canonical match pairs.
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	// Incr atomically increments a counter and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
}

// SortedSetStore provides sorted-set index operations.
type SortedSetStore interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRem(ctx context.Context, key string, members ...string) error
	ZCard(ctx context.Context, key string) (int64, error)
	// ZRevRange returns members by reverse rank index, inclusive.
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// ZRevRangeByScore returns members with scores in [min, max], highest first,
	// paginated by offset/count (count < 0 means unbounded).
	ZRevRangeByScore(ctx context.Context, key, max, min string, offset, count int64) ([]string, error)
}

// ListStore provides list operations (append-only note collections).
type ListStore interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

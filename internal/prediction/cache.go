package prediction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/pkg/utils"
)

// Store is the backend a prediction cache writes through. Duplicate
// concurrent misses for the same key may each hit the network once; that is
// an accepted inefficiency, not a correctness bug.
type Store interface {
	Get(ctx context.Context, key string) (float64, bool, error)
	Set(ctx context.Context, key string, value float64, ttl time.Duration) error
}

// Key builds a cache key from the source/destination pair, rounding to six
// decimal degrees (roughly a 0.1 m grid) so jittery map coordinates share
// entries.
func Key(src, dst domain.Point) string {
	return fmt.Sprintf("predict:%.6f,%.6f:%.6f,%.6f",
		utils.RoundTo(src.Lat, 6), utils.RoundTo(src.Lon, 6),
		utils.RoundTo(dst.Lat, 6), utils.RoundTo(dst.Lon, 6))
}

type memoryEntry struct {
	value     float64
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Entries past their TTL are treated as
// absent and evicted lazily on read; no background sweeper runs.
type MemoryStore struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-process store. A nil clock uses time.Now.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		now:     clock,
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the cached value if present and fresh, evicting stale entries
func (s *MemoryStore) Get(_ context.Context, key string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return 0, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return 0, false, nil
	}
	return e.value, true, nil
}

// Set stores the value with its expiry
func (s *MemoryStore) Set(_ context.Context, key string, value float64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// RedisStore backs the prediction cache with Redis so entries survive
// restarts and are shared across instances. TTL enforcement is native.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing Redis client
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get returns the cached value if Redis holds an unexpired entry
func (s *RedisStore) Get(ctx context.Context, key string) (float64, bool, error) {
	v, err := s.rdb.Get(ctx, key).Float64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("prediction: redis get: %w", err)
	}
	return v, true, nil
}

// Set stores the value with Redis-side expiry
func (s *RedisStore) Set(ctx context.Context, key string, value float64, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("prediction: redis set: %w", err)
	}
	return nil
}

// Cache memoizes prediction values keyed by rounded coordinate pairs with a
// fixed TTL. Lookups never touch the circuit breaker.
type Cache struct {
	store Store
	ttl   time.Duration
}

// NewCache wraps a store with the prediction TTL
func NewCache(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// Get returns the fresh cached value for the coordinate pair, if any.
// Store errors are swallowed: a broken cache degrades to a miss.
func (c *Cache) Get(ctx context.Context, src, dst domain.Point) (float64, bool) {
	v, ok, err := c.store.Get(ctx, Key(src, dst))
	if err != nil || !ok {
		return 0, false
	}
	return v, true
}

// Put memoizes a successful prediction
func (c *Cache) Put(ctx context.Context, src, dst domain.Point, value float64) {
	_ = c.store.Set(ctx, Key(src, dst), value, c.ttl)
}

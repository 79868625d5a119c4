package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore backs the destination and token-lifetime abuse layers. It is
// check-then-increment on purpose: a blocked send must not consume budget, so
// callers read Count before dispatch and Incr only after a successful one.
type CounterStore interface {
	Count(ctx context.Context, key string) (int, error)
	Incr(ctx context.Context, key string, window time.Duration) error
}

type memoryEntry struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

func (e *memoryEntry) expired(now time.Time) bool {
	return e.window > 0 && now.Sub(e.windowStart) >= e.window
}

// MemoryCounterStore holds windowed counters in-process. Correct for a single
// instance only; swap in the redis store for scale-out.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	done    chan struct{}
	once    sync.Once
}

func NewMemoryCounterStore() *MemoryCounterStore {
	s := &MemoryCounterStore{
		entries: make(map[string]*memoryEntry),
		done:    make(chan struct{}),
	}
	go s.sweep(10 * time.Minute)
	return s
}

func (s *MemoryCounterStore) Count(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.expired(time.Now()) {
		return 0, nil
	}
	return e.count, nil
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.entries[key]
	if !ok || e.expired(now) {
		s.entries[key] = &memoryEntry{count: 1, windowStart: now, window: window}
		return nil
	}
	e.count++
	return nil
}

func (s *MemoryCounterStore) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, e := range s.entries {
				if e.expired(now) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *MemoryCounterStore) Close() {
	s.once.Do(func() { close(s.done) })
}

// RedisCounterStore shares counters across instances. Expiry is handled by
// redis itself, so there is no sweep.
type RedisCounterStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCounterStore(client *redis.Client, prefix string) *RedisCounterStore {
	return &RedisCounterStore{client: client, prefix: prefix}
}

func (s *RedisCounterStore) Count(ctx context.Context, key string) (int, error) {
	n, err := s.client.Get(ctx, s.prefix+key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) error {
	full := s.prefix + key
	n, err := s.client.Incr(ctx, full).Result()
	if err != nil {
		return err
	}
	if n == 1 && window > 0 {
		return s.client.Expire(ctx, full, window).Err()
	}
	return nil
}

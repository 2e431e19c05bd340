package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	gosync "sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores synchronised snapshots per window size for a bounded time.
// Writes are tagged with the generation read before the sync started; a write
// from an older generation must never become visible.
type Cache interface {
	Get(ctx context.Context, window int) (*Snapshot, bool, error)
	Generation(ctx context.Context) (uint64, error)
	Set(ctx context.Context, window int, gen uint64, snap *Snapshot, ttl time.Duration) error
	// Invalidate drops every cached window and advances the generation.
	Invalidate(ctx context.Context) error
}

type cachedSnapshot struct {
	snap      *Snapshot
	expiresAt time.Time
}

// MemoryCache is the in-process cache used when Redis is not configured.
type MemoryCache struct {
	mu      gosync.RWMutex
	entries map[int]cachedSnapshot
	gen     uint64
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[int]cachedSnapshot), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, window int) (*Snapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[window]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.snap.clone(), true, nil
}

func (c *MemoryCache) Generation(context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen, nil
}

// Set drops the write when gen is no longer current.
func (c *MemoryCache) Set(_ context.Context, window int, gen uint64, snap *Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.entries[window] = cachedSnapshot{snap: snap.clone(), expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.gen++
	return nil
}

const (
	snapshotKeyPrefix = "complaints:snapshot:"
	generationKey     = "complaints:snapshot:gen"
)

// RedisCache shares snapshots between instances. Keys embed a generation
// counter, so Invalidate is a single INCR and stale keys age out by TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Generation(ctx context.Context) (uint64, error) {
	gen, err := c.client.Get(ctx, generationKey).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read snapshot generation: %w", err)
	}
	return gen, nil
}

func snapshotKey(gen uint64, window int) string {
	return snapshotKeyPrefix + strconv.FormatUint(gen, 10) + ":" + strconv.Itoa(window)
}

func (c *RedisCache) Get(ctx context.Context, window int) (*Snapshot, bool, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, false, err
	}
	body, err := c.client.Get(ctx, snapshotKey(gen, window)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, true, nil
}

// Set writes under gen's key. After an Invalidate that key is never read
// again, so a late write from an older generation is harmless.
func (c *RedisCache) Set(ctx context.Context, window int, gen uint64, snap *Snapshot, ttl time.Duration) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.client.Set(ctx, snapshotKey(gen, window), body, ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BarkinBalci/registration-analytics-service/internal/query"
)

// ErrComputeFailure wraps errors returned by a compute function. Failed computations are never cached.
var ErrComputeFailure = errors.New("metrics computation failed")

// Observer is notified of cache activity
type Observer interface {
	CacheHit()
	CacheMiss()
	// CacheEvicted counts entries dropped for capacity or TTL
	CacheEvicted(n int)
	// CacheInvalidated counts entries dropped because a new snapshot became current
	CacheInvalidated(n int)
	CacheFailure()
}

// ComputeFunc produces the result slice for a cache miss
type ComputeFunc func(ctx context.Context) (*query.ResultSlice, error)

type entry struct {
	version   int64
	result    *query.ResultSlice
	createdAt time.Time
}

// Cache memoizes result slices per (snapshot version, filter spec).
// Concurrent requests for the same key share a single computation.
type Cache struct {
	mu      sync.Mutex
	current int64
	lru     *expirable.LRU[string, entry]
	group   singleflight.Group
	obs     Observer
	logger  *zap.Logger
	// advancing is set while Advance removes entries, so the eviction callback skips them
	advancing atomic.Bool
}

// New creates a new cache holding at most size entries. A ttl of zero disables expiry.
func New(size int, ttl time.Duration, obs Observer, logger *zap.Logger) *Cache {
	c := &Cache{
		obs:    obs,
		logger: logger,
	}
	c.lru = expirable.NewLRU[string, entry](size, func(string, entry) {
		if c.obs != nil && !c.advancing.Load() {
			c.obs.CacheEvicted(1)
		}
	}, ttl)
	return c
}

func cacheKey(version int64, spec query.FilterSpec) string {
	h := sha1.Sum([]byte(spec.Key()))
	return strconv.FormatInt(version, 10) + "|" + hex.EncodeToString(h[:])
}

// GetOrCompute returns the cached slice for (version, spec) or computes it.
// Results for a version other than the current one are returned to the caller but never stored.
func (c *Cache) GetOrCompute(ctx context.Context, version int64, spec query.FilterSpec, compute ComputeFunc) (*query.ResultSlice, error) {
	key := cacheKey(version, spec)

	if e, ok := c.lru.Get(key); ok {
		c.hit()
		return e.result, nil
	}
	c.miss()

	ch := c.group.DoChan(key, func() (any, error) {
		if e, ok := c.lru.Get(key); ok {
			return e.result, nil
		}

		// waiters share this computation; it must not inherit one caller's cancellation
		res, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			if c.obs != nil {
				c.obs.CacheFailure()
			}
			return nil, fmt.Errorf("%w: %w", ErrComputeFailure, err)
		}

		c.store(key, version, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*query.ResultSlice), nil
	}
}

func (c *Cache) store(key string, version int64, res *query.ResultSlice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version != c.current {
		c.logger.Debug("Discarding result of superseded snapshot",
			zap.Int64("version", version),
			zap.Int64("current", c.current))
		return
	}
	c.lru.Add(key, entry{version: version, result: res, createdAt: time.Now()})
}

// Advance makes version current and drops every entry computed for another version
func (c *Cache) Advance(version int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = version

	c.advancing.Store(true)
	removed := 0
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if ok && e.version == version {
			continue
		}
		if c.lru.Remove(key) {
			removed++
		}
	}
	c.advancing.Store(false)

	if c.obs != nil && removed > 0 {
		c.obs.CacheInvalidated(removed)
	}

	c.logger.Info("Cache advanced to new snapshot",
		zap.Int64("version", version),
		zap.Int("invalidated", removed))
}

// Version returns the current snapshot version
func (c *Cache) Version() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	return c.lru.Len()
}

func (c *Cache) hit() {
	if c.obs != nil {
		c.obs.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.obs != nil {
		c.obs.CacheMiss()
	}
}

package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Chicken/VenaaRauhassa/internal/metrics"
	"github.com/Chicken/VenaaRauhassa/internal/notify"
)

// Loader produces a fresh value for a cache miss
type Loader[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value    T
	storedAt time.Time
	timer    *time.Timer
}

// Options configures the collaborators of a fresh/stale cache
type Options struct {
	Reporter notify.Reporter
	Metrics  *metrics.Metrics
	// Now overrides the clock used for age checks
	Now func() time.Time
}

// SWR is an in-memory cache with two validity tiers.
// Entries younger than fresh are served without calling the loader. Entries
// younger than fresh+stale are only served when the loader fails. Entries are
// evicted once they are older than fresh+stale.
type SWR[T any] struct {
	name  string
	fresh time.Duration
	stale time.Duration

	mu      sync.Mutex
	entries map[string]*entry[T]
	group   singleflight.Group

	now      func() time.Time
	reporter notify.Reporter
	metrics  *metrics.Metrics
}

// NewSWR creates a cache; name labels metrics and error reports
func NewSWR[T any](name string, fresh, stale time.Duration, opts Options) *SWR[T] {
	c := &SWR[T]{
		name:     name,
		fresh:    fresh,
		stale:    stale,
		entries:  make(map[string]*entry[T]),
		now:      opts.Now,
		reporter: opts.Reporter,
		metrics:  opts.Metrics,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.reporter == nil {
		c.reporter = notify.LogReporter{}
	}
	return c
}

// Key joins the arguments of a cached call into a cache key
func Key(parts ...string) string {
	return strings.Join(parts, ",")
}

// Get returns the cached value for key or calls load.
// Concurrent misses for the same key share one load.
func (c *SWR[T]) Get(ctx context.Context, key string, load Loader[T]) (T, error) {
	if v, ok := c.lookup(key, c.fresh); ok {
		c.metrics.CacheRequest(c.name, "hit")
		return v, nil
	}
	c.metrics.CacheRequest(c.name, "miss")

	// The shared load must not die with whichever caller started it
	loadCtx := context.WithoutCancel(ctx)
	res, err, _ := c.group.Do(key, func() (any, error) {
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})
	if err == nil {
		return res.(T), nil
	}

	if v, ok := c.lookup(key, c.fresh+c.stale); ok {
		c.metrics.CacheRequest(c.name, "stale")
		go c.reporter.Report(context.WithoutCancel(ctx), map[string]string{
			"function": c.name,
			"key":      key,
			"message":  "Serving stale value after refresh failure",
		}, err)
		return v, nil
	}

	c.metrics.CacheRequest(c.name, "error")
	var zero T
	return zero, err
}

// size returns the number of entries that have not been evicted yet
func (c *SWR[T]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry and cancels pending evictions
func (c *SWR[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		e.timer.Stop()
		delete(c.entries, key)
	}
}

func (c *SWR[T]) lookup(key string, maxAge time.Duration) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= maxAge {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (c *SWR[T]) store(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		old.timer.Stop()
	}

	e := &entry[T]{value: value, storedAt: c.now()}
	e.timer = time.AfterFunc(c.fresh+c.stale, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.entries[key] == e {
			delete(c.entries, key)
		}
	})
	c.entries[key] = e
}

// Package cache serves token reads with per-category staleness windows
// and request coalescing, so repeated queries for the same key never
// issue duplicate external calls.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tokenscope/internal/domain"
	"tokenscope/internal/infra"
	"tokenscope/pkg/format"
)

// Key identifies one cached read: (address, chain, field).
type Key struct {
	Address string
	ChainID int64
	Field   domain.Field
}

// NewKey normalizes the address and builds a Key.
func NewKey(address string, chainID int64, field domain.Field) Key {
	return Key{Address: format.NormalizeAddress(address), ChainID: chainID, Field: field}
}

// String renders the storage key. The field comes last so that all
// fields of one token share a common prefix for invalidation.
func (k Key) String() string {
	return fmt.Sprintf("%d:%s:%s", k.ChainID, strings.ToLower(k.Address), k.Field)
}

// TokenPrefix is the key prefix shared by every field of one token.
func TokenPrefix(address string, chainID int64) string {
	return fmt.Sprintf("%d:%s:", chainID, format.NormalizeAddress(address))
}

// Fetcher loads a value from the external collaborator.
type Fetcher func(ctx context.Context) (any, error)

// ErrNoRetry marks fetch failures that must surface immediately.
// Collaborators wrap throttle and server-fault responses with it;
// retrying those only makes the upstream worse.
var ErrNoRetry = errors.New("fetch must not be retried")

// Recorder receives cache effectiveness signals. Implemented by the
// telemetry aggregator; a nil recorder disables reporting.
type Recorder interface {
	RecordCacheHit(hit bool)
}

type entry struct {
	value     any
	fetchedAt time.Time
}

// QueryCache is the query-deduplicating staleness cache.
// Entries are evicted only by Invalidate or Reset; the working set is
// bounded by the number of tokens a user actually queries.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	cfg     Config

	recorder Recorder
	now      func() time.Time
}

// New creates a QueryCache. The config is validated up front.
func New(cfg Config, recorder Recorder) (*QueryCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache config: %w", err)
	}
	return &QueryCache{
		entries:  make(map[string]entry),
		cfg:      cfg,
		recorder: recorder,
		now:      time.Now,
	}, nil
}

// Get returns the cached value for key if it is fresher than the
// category's staleness window, otherwise fetches it. Concurrent callers
// for the same key are coalesced onto a single fetch and all observe
// the same value or the same error. Errors are never cached.
func (c *QueryCache) Get(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	qc := c.cfg.forField(key.Field)
	ks := key.String()

	if v, ok := c.lookup(ks, qc.StaleTime); ok {
		c.record(true)
		return v, nil
	}
	c.record(false)

	v, err, shared := c.group.Do(ks, func() (any, error) {
		// A coalesced waiter may arrive just as the winner finishes;
		// re-check so a fresh store is not refetched.
		if v, ok := c.lookup(ks, qc.StaleTime); ok {
			return v, nil
		}

		v, err := c.fetchWithRetry(ctx, ks, qc, fetch)
		if err != nil {
			return nil, err
		}

		c.store(ks, v)
		return v, nil
	})

	if shared {
		slog.Debug("coalesced cache fetch", "key", ks)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// fetchWithRetry runs the fetcher with bounded retries and exponential
// backoff per the category config. Context cancellation aborts the wait.
func (c *QueryCache) fetchWithRetry(ctx context.Context, ks string, qc QueryConfig, fetch Fetcher) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= qc.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := infra.BackoffWithBase(qc.RetryBase, qc.RetryMax, attempt-1)
			slog.Debug("retrying fetch", "key", ks, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		v, err := fetch(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if errors.Is(err, ErrNoRetry) {
			break
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", ks, lastErr)
}

func (c *QueryCache) lookup(ks string, staleTime time.Duration) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ks]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= staleTime {
		return nil, false
	}
	return e.value, true
}

func (c *QueryCache) store(ks string, v any) {
	c.mu.Lock()
	c.entries[ks] = entry{value: v, fetchedAt: c.now()}
	c.mu.Unlock()
}

// Put stores a value directly, stamped with the current time. Used by
// the live price feed to keep short-staleness entries warm.
func (c *QueryCache) Put(key Key, v any) {
	c.store(key.String(), v)
}

// Invalidate drops every entry whose key starts with prefix and
// returns the number of dropped entries.
func (c *QueryCache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for ks := range c.entries {
		if strings.HasPrefix(ks, prefix) {
			delete(c.entries, ks)
			n++
		}
	}
	return n
}

// InvalidateToken drops all cached fields for one token, forcing the
// next read of each to refetch.
func (c *QueryCache) InvalidateToken(address string, chainID int64) int {
	return c.Invalidate(TokenPrefix(address, chainID))
}

// Reset drops everything. Used at teardown and between tests.
func (c *QueryCache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) record(hit bool) {
	if c.recorder != nil {
		c.recorder.RecordCacheHit(hit)
	}
}

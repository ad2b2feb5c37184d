// Package cache implements the two-tier store for verified result sets.
//
// The local tier is an in-process LRU with per-entry expiry. The optional
// shared tier is Redis. Shared-tier failures never surface to callers: they
// are logged, counted, and treated as misses or no-ops.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/metrics"
)

const (
	defaultLocalCapacity = 10_000
	defaultSharedTimeout = 2 * time.Second
)

// TierStatus describes the health of the shared tier.
type TierStatus string

// Shared tier states.
const (
	TierDisabled    TierStatus = "disabled"
	TierOperational TierStatus = "operational"
	TierUnreachable TierStatus = "unreachable"
)

// SharedTier is a remote key/value store holding JSON payloads with expiry.
type SharedTier interface {
	// Get returns the payload and its remaining lifetime (zero when unknown).
	// found is false on a clean miss.
	Get(ctx context.Context, key string) (payload []byte, remaining time.Duration, found bool, err error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Config controls cache sizing and timeouts.
type Config struct {
	LocalCapacity int
	SharedTimeout time.Duration
	// TTLs overrides the per-category default freshness.
	TTLs map[content.Category]time.Duration
}

type entry struct {
	items     []content.VerifiedItem
	expiresAt time.Time
}

// Tiered is the cache shared by all request handlers.
type Tiered struct {
	cfg    Config
	local  *lru.Cache[string, entry]
	shared SharedTier
	clock  content.Clock
	logger *zap.Logger
}

// New builds the cache. shared may be nil, which disables the shared tier.
func New(cfg Config, shared SharedTier, clock content.Clock, logger *zap.Logger) (*Tiered, error) {
	if cfg.LocalCapacity <= 0 {
		cfg.LocalCapacity = defaultLocalCapacity
	}
	if cfg.SharedTimeout <= 0 {
		cfg.SharedTimeout = defaultSharedTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	local, err := lru.New[string, entry](cfg.LocalCapacity)
	if err != nil {
		return nil, fmt.Errorf("create local tier: %w", err)
	}
	return &Tiered{
		cfg:    cfg,
		local:  local,
		shared: shared,
		clock:  clock,
		logger: logger.Named("cache"),
	}, nil
}

// TTL returns the freshness window for results of the category.
func (t *Tiered) TTL(c content.Category) time.Duration {
	if ttl, ok := t.cfg.TTLs[c]; ok && ttl > 0 {
		return ttl
	}
	return c.DefaultTTL()
}

// Get returns the cached items for key. Expired entries are absent.
func (t *Tiered) Get(ctx context.Context, key string) ([]content.VerifiedItem, bool) {
	if items, ok := t.getLocal(key); ok {
		metrics.ObserveCacheLookup("local", true)
		return items, true
	}
	metrics.ObserveCacheLookup("local", false)

	if t.shared == nil {
		return nil, false
	}
	items, remaining, ok := t.getShared(ctx, key)
	metrics.ObserveCacheLookup("shared", ok)
	if !ok {
		return nil, false
	}
	if remaining <= 0 {
		remaining = t.ttlForKey(key)
	}
	t.setLocal(key, items, remaining)
	return slices.Clone(items), true
}

// Set stores items under key in both tiers. A non-positive ttl uses the
// category default for the key.
func (t *Tiered) Set(ctx context.Context, key string, items []content.VerifiedItem, ttl time.Duration) {
	if ttl <= 0 {
		ttl = t.ttlForKey(key)
	}
	if items == nil {
		items = []content.VerifiedItem{}
	}
	stored := slices.Clone(items)
	t.setLocal(key, stored, ttl)

	if t.shared == nil {
		return
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		t.logger.Warn("encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	t.sharedOp(ctx, "set", key, func(ctx context.Context) error {
		return t.shared.Set(ctx, key, payload, ttl)
	})
}

// Delete removes key from both tiers.
func (t *Tiered) Delete(ctx context.Context, key string) {
	t.local.Remove(key)
	if t.shared == nil {
		return
	}
	t.sharedOp(ctx, "delete", key, func(ctx context.Context) error {
		return t.shared.Delete(ctx, key)
	})
}

// Clear empties the local tier and flushes the shared tier.
func (t *Tiered) Clear(ctx context.Context) {
	t.local.Purge()
	if t.shared == nil {
		return
	}
	t.sharedOp(ctx, "flush", "", t.shared.Flush)
}

// Ping reports the shared tier state.
func (t *Tiered) Ping(ctx context.Context) TierStatus {
	if t.shared == nil {
		return TierDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, t.cfg.SharedTimeout)
	defer cancel()
	if err := t.shared.Ping(ctx); err != nil {
		t.logger.Debug("shared tier ping failed", zap.Error(err))
		return TierUnreachable
	}
	return TierOperational
}

// Len reports the number of local entries, including ones not yet evicted after expiry.
func (t *Tiered) Len() int {
	return t.local.Len()
}

func (t *Tiered) getLocal(key string) ([]content.VerifiedItem, bool) {
	e, ok := t.local.Get(key)
	if !ok {
		return nil, false
	}
	if !t.clock.Now().Before(e.expiresAt) {
		t.local.Remove(key)
		return nil, false
	}
	return slices.Clone(e.items), true
}

func (t *Tiered) setLocal(key string, items []content.VerifiedItem, ttl time.Duration) {
	t.local.Add(key, entry{items: items, expiresAt: t.clock.Now().Add(ttl)})
}

func (t *Tiered) getShared(ctx context.Context, key string) ([]content.VerifiedItem, time.Duration, bool) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.SharedTimeout)
	defer cancel()

	payload, remaining, found, err := t.shared.Get(ctx, key)
	if err != nil {
		metrics.ObserveSharedCacheError("get")
		t.logger.Warn("shared tier get failed", zap.String("key", key), zap.Error(err))
		return nil, 0, false
	}
	if !found {
		return nil, 0, false
	}
	var items []content.VerifiedItem
	if err := json.Unmarshal(payload, &items); err != nil {
		metrics.ObserveSharedCacheError("decode")
		t.logger.Warn("shared tier entry undecodable", zap.String("key", key), zap.Error(err))
		return nil, 0, false
	}
	if items == nil {
		items = []content.VerifiedItem{}
	}
	return items, remaining, true
}

func (t *Tiered) sharedOp(ctx context.Context, op, key string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.SharedTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		metrics.ObserveSharedCacheError(op)
		t.logger.Warn("shared tier operation failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
	}
}

func (t *Tiered) ttlForKey(key string) time.Duration {
	if c, ok := content.CategoryOfKey(key); ok {
		return t.TTL(c)
	}
	return content.CategoryMovies.DefaultTTL()
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"backoffice/internal/models"
)

const (
	// categoryListKey holds the encoded flat category list.
	categoryListKey = "categories:list"

	// DefaultCategoryTTL is how long the list stays cached without writes.
	DefaultCategoryTTL = 5 * time.Minute
)

// Loader fetches the authoritative category list on a cache miss.
type Loader func(ctx context.Context) ([]models.Category, error)

// CategoryCache keeps the flat category list in Valkey. Concurrent misses
// share one load. A nil client disables storage; loads are still shared.
//
// Every Invalidate bumps a generation. A load that started before the bump
// is not stored, and callers arriving after it start a fresh load.
type CategoryCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group

	mu  sync.Mutex
	gen uint64
}

// NewCategoryCache creates a category cache backed by the given Valkey client.
func NewCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	if ttl == 0 {
		ttl = DefaultCategoryTTL
	}
	return &CategoryCache{client: client, ttl: ttl}
}

// List returns the cached list, or calls load and caches its result.
// Valkey errors degrade to a plain load.
func (cc *CategoryCache) List(ctx context.Context, load Loader) ([]models.Category, error) {
	if items, ok := cc.get(ctx); ok {
		return items, nil
	}

	v, err, shared := cc.group.Do(categoryListKey, func() (any, error) {
		// The load is shared, so one caller going away must not fail the rest.
		lctx := context.WithoutCancel(ctx)
		gen := cc.generation()
		items, err := load(lctx)
		if err != nil {
			return nil, err
		}
		cc.set(lctx, gen, items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("category cache load shared")
	}
	return v.([]models.Category), nil
}

// Invalidate drops the cached list and detaches any load still running.
// Every category write calls it.
func (cc *CategoryCache) Invalidate(ctx context.Context) {
	cc.mu.Lock()
	cc.gen++
	cc.group.Forget(categoryListKey)
	cc.mu.Unlock()

	if cc.client == nil {
		return
	}
	if err := cc.client.Del(ctx, categoryListKey).Err(); err != nil {
		slog.Warn("category cache invalidate error", "error", err)
		return
	}
	slog.Debug("category cache invalidated")
}

func (cc *CategoryCache) generation() uint64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.gen
}

func (cc *CategoryCache) get(ctx context.Context) ([]models.Category, bool) {
	if cc.client == nil {
		return nil, false
	}
	raw, err := cc.client.Get(ctx, categoryListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("category cache get error", "error", err)
		return nil, false
	}

	var items []models.Category
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("category cache decode error", "error", err)
		return nil, false
	}
	slog.Debug("category cache hit", "count", len(items))
	return items, true
}

// set stores items only if no Invalidate ran since gen was read. The lock
// orders the store before any later Invalidate's delete.
func (cc *CategoryCache) set(ctx context.Context, gen uint64, items []models.Category) {
	if cc.client == nil {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		slog.Warn("category cache encode error", "error", err)
		return
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	if gen != cc.gen {
		slog.Debug("category cache skipped stale load")
		return
	}
	if err := cc.client.Set(ctx, categoryListKey, raw, cc.ttl).Err(); err != nil {
		slog.Warn("category cache set error", "error", err)
	}
}

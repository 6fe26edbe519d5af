package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/singleflight"

	"myshop/internal/cache"
	"myshop/internal/models"
	"myshop/internal/resource"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const sharedLoadTimeout = 15 * time.Second

// Store is the byte cache the Cached decorator writes through.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Cached keeps successful reads of next in Store for ttl and collapses
// concurrent identical reads into one call. Failures are never cached.
type Cached struct {
	next  Repository
	store Store
	ttl   time.Duration
	group singleflight.Group
}

func NewCached(next Repository, store Store, ttl time.Duration) *Cached {
	return &Cached{next: next, store: store, ttl: ttl}
}

func (c *Cached) ListProducts(ctx context.Context) resource.Result[[]models.Product] {
	return cachedRead(ctx, c, "catalog.list_products", "catalog:products", c.next.ListProducts)
}

func (c *Cached) GetProduct(ctx context.Context, id int) resource.Result[models.Product] {
	key := fmt.Sprintf("catalog:product:%d", id)
	return cachedRead(ctx, c, "catalog.get_product", key, func(ctx context.Context) resource.Result[models.Product] {
		return c.next.GetProduct(ctx, id)
	})
}

func (c *Cached) SearchProducts(ctx context.Context, query string) resource.Result[[]models.Product] {
	key := "catalog:search:" + strings.ToLower(query)
	return cachedRead(ctx, c, "catalog.search_products", key, func(ctx context.Context) resource.Result[[]models.Product] {
		return c.next.SearchProducts(ctx, query)
	})
}

func (c *Cached) ListCategories(ctx context.Context) resource.Result[[]string] {
	return cachedRead(ctx, c, "catalog.list_categories", "catalog:categories", c.next.ListCategories)
}

func (c *Cached) ListProductsByCategory(ctx context.Context, name string) resource.Result[[]models.Product] {
	key := "catalog:category:" + strings.ToLower(name)
	return cachedRead(ctx, c, "catalog.list_products_by_category", key, func(ctx context.Context) resource.Result[[]models.Product] {
		return c.next.ListProductsByCategory(ctx, name)
	})
}

// cachedRead serves key from the store or runs load once for every
// concurrent caller. The shared load is detached from any single caller's
// cancellation and bounded by sharedLoadTimeout instead; each caller still
// stops waiting when its own ctx is done.
func cachedRead[T any](ctx context.Context, c *Cached, op, key string, load func(context.Context) resource.Result[T]) resource.Result[T] {
	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		decodeErr := json.Unmarshal(data, &v)
		if decodeErr == nil {
			slog.Debug("Cache HIT", "key", key)
			return finish(op, resource.Success(v))
		}
		slog.Warn("Discarding undecodable cache entry", "key", key, "error", decodeErr)
	case !errors.Is(err, cache.ErrMiss):
		slog.Warn("Cache read failed", "key", key, "error", err)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()

		r := load(loadCtx)
		if v, ok := r.Value(); ok {
			c.put(loadCtx, key, v)
		}
		return r, nil
	})

	select {
	case res := <-ch:
		return res.Val.(resource.Result[T])
	case <-ctx.Done():
		return finish(op, resource.Failure[T](ctx.Err()))
	}
}

func (c *Cached) put(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		slog.Warn("Cache write failed", "key", key, "error", err)
	}
}

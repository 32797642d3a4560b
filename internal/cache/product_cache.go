package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/store"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	productKeyPrefix = "product:"
	productListKey   = "products:active"
)

// Client is the slice of the redis API the cache uses. *redis.Client
// satisfies it; tests plug in a map-backed fake.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedStore decorates a Store with a Redis read-through cache for product
// rows. Product reads dominate the workload (every movement form, every
// projector refresh), while the rows themselves are small, so they cache
// well. Every write path that can touch a product's counters or fields
// invalidates after the write succeeds, so a reader racing the write can
// only ever repopulate the key with post-write data. Redis being down
// degrades to plain store reads, never to an error.
type CachedStore struct {
	store.Store
	rdb Client
	ttl time.Duration
	log *zap.Logger
}

func NewCachedStore(st store.Store, rdb Client, ttl time.Duration, log *zap.Logger) *CachedStore {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedStore{Store: st, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	key := productKeyPrefix + id
	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var p model.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		// Corrupt entry; drop it and fall through to the store.
		c.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("product cache read failed", zap.String("product_id", id), zap.Error(err))
	}

	p, err := c.Store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("product cache write failed", zap.String("product_id", id), zap.Error(err))
		}
	}
	return p, nil
}

func (c *CachedStore) ListProducts(ctx context.Context, includeDeleted bool) ([]model.Product, error) {
	// Only the common active listing is cached; archived views go straight
	// through.
	if includeDeleted {
		return c.Store.ListProducts(ctx, true)
	}
	if data, err := c.rdb.Get(ctx, productListKey).Bytes(); err == nil {
		var ps []model.Product
		if err := json.Unmarshal(data, &ps); err == nil {
			return ps, nil
		}
		c.rdb.Del(ctx, productListKey)
	}

	ps, err := c.Store.ListProducts(ctx, false)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(ps); err == nil {
		c.rdb.Set(ctx, productListKey, data, c.ttl)
	}
	return ps, nil
}

// CreateProduct drops the cached active listing so the new product shows up
// on the next list read instead of after the TTL.
func (c *CachedStore) CreateProduct(ctx context.Context, p *model.Product) error {
	if err := c.Store.CreateProduct(ctx, p); err != nil {
		return err
	}
	c.invalidateList(ctx)
	return nil
}

func (c *CachedStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	if err := c.Store.UpdateProduct(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *CachedStore) UpdateProductLocation(ctx context.Context, id, location string) error {
	if err := c.Store.UpdateProductLocation(ctx, id, location); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedStore) SoftDeleteProduct(ctx context.Context, id, deletedBy string) error {
	if err := c.Store.SoftDeleteProduct(ctx, id, deletedBy); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedStore) HardDeleteProduct(ctx context.Context, id string) error {
	if err := c.Store.HardDeleteProduct(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// InsertMovement invalidates after the write so the cached counters can
// never outlive a successful ledger insert.
func (c *CachedStore) InsertMovement(ctx context.Context, m *model.StockMovement) error {
	if err := c.Store.InsertMovement(ctx, m); err != nil {
		return err
	}
	c.invalidate(ctx, m.ProductID)
	return nil
}

func (c *CachedStore) invalidate(ctx context.Context, productID string) {
	if err := c.rdb.Del(ctx, productKeyPrefix+productID, productListKey).Err(); err != nil {
		c.log.Warn("product cache invalidation failed",
			zap.String("product_id", productID), zap.Error(err))
	}
}

func (c *CachedStore) invalidateList(ctx context.Context) {
	if err := c.rdb.Del(ctx, productListKey).Err(); err != nil {
		c.log.Warn("product cache invalidation failed", zap.Error(err))
	}
}

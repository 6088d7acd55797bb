package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var errCacheMiss = errors.New("cache miss")

const (
	productsKey       = "catalog:products"
	defaultCacheTTL   = 5 * time.Minute
	maxCacheTTLJitter = 2
)

// CachedCatalog is a read-through Redis cache in front of another Catalog.
// Cache failures are logged and fall through to the source.
type CachedCatalog struct {
	source  Catalog
	client  *redis.Client
	baseTTL time.Duration
	logger  *slog.Logger
	sfg     singleflight.Group
}

func NewCachedCatalog(source Catalog, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedCatalog {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedCatalog{
		source:  source,
		client:  client,
		baseTTL: ttl,
		logger:  logger,
	}
}

func (c *CachedCatalog) Products(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := c.get(ctx, productsKey, &products)
	if err == nil {
		return products, nil
	}
	if !errors.Is(err, errCacheMiss) {
		c.logger.WarnContext(ctx, "catalog cache read failed", "key", productsKey, "error", err)
	}

	v, err, _ := c.sfg.Do(productsKey, func() (interface{}, error) {
		products, err := c.source.Products(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, productsKey, products)
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (c *CachedCatalog) ProductByHandle(ctx context.Context, handle string) (*domain.Product, error) {
	key := productKey(handle)

	var product domain.Product
	err := c.get(ctx, key, &product)
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, errCacheMiss) {
		c.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
	}

	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		p, err := c.source.ProductByHandle(ctx, handle)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*domain.Product)
	return &p, nil
}

// Invalidate drops the listing and the given product handles.
func (c *CachedCatalog) Invalidate(ctx context.Context, handles ...string) error {
	keys := []string{productsKey}
	for _, h := range handles {
		keys = append(keys, productKey(h))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *CachedCatalog) get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return errCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal cached catalog failed: %w", err)
	}
	return nil
}

func (c *CachedCatalog) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to marshal catalog for cache", "key", key, "error", err)
		return
	}
	jitter := time.Duration(rand.Intn(maxCacheTTLJitter+1)) * time.Minute
	if err := c.client.Set(ctx, key, data, c.baseTTL+jitter).Err(); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
	}
}

func productKey(handle string) string {
	return fmt.Sprintf("catalog:product:%s", handle)
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const productListPrefix = "catalog:products:"

// 商品一覧のキャッシュ（cache-aside）
type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProductCache(client *redis.Client, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{client: client, ttl: ttl}
}

func (c *RedisProductCache) GetProducts(ctx context.Context, key string) ([]model.Product, bool, error) {
	data, err := c.client.Get(ctx, productListPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false, nil
	}
	return products, true, nil
}

func (c *RedisProductCache) SetProducts(ctx context.Context, key string, products []model.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productListPrefix+key, data, c.ttl).Err()
}

// InvalidateProducts は一覧キャッシュを全部消す（管理画面の更新時）
func (c *RedisProductCache) InvalidateProducts(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, productListPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Redisが無いとき用（常にミス）
type NoopProductCache struct{}

func (NoopProductCache) GetProducts(context.Context, string) ([]model.Product, bool, error) {
	return nil, false, nil
}

func (NoopProductCache) SetProducts(context.Context, string, []model.Product) error { return nil }

func (NoopProductCache) InvalidateProducts(context.Context) error { return nil }

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"shoppit/internal/domain/model"
)

const productListKey = "products:all"

// 商品一覧のcache-aside。clientがnilなら何もしない（redis無しでも動く）。
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

// GetList はキャッシュヒット時に(true, 商品一覧)を返す。
// redisのエラーはミス扱い（キャッシュは落ちてもサービスは落とさない）。
func (c *ProductCache) GetList(ctx context.Context) ([]model.Product, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, productListKey).Bytes()
	if err != nil {
		return nil, false
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false
	}
	return products, true
}

func (c *ProductCache) SetList(ctx context.Context, products []model.Product) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	c.client.Set(ctx, productListKey, data, c.ttl)
}

// 商品の作成・更新後に呼ぶ
func (c *ProductCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, productListKey)
}

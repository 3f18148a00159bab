package view

import (
	"context"
	"fmt"
	"time"

	"foodcart/cache"
)

// CachedViewStore 为视图存储加一层进程内读缓存
//
// 写入走底层存储后同步刷新缓存，同一进程内的投影更新立即可见；
// 多实例部署时其他实例的更新最多滞后一个 TTL。
type CachedViewStore struct {
	inner IViewStore
	cache *cache.Cache[string, *FoodCartView]
}

// CachedViewStoreConfig 缓存参数
type CachedViewStoreConfig struct {
	MaxSize int
	TTL     time.Duration
}

// NewCachedViewStore 包装底层视图存储
func NewCachedViewStore(inner IViewStore, cfg CachedViewStoreConfig) (*CachedViewStore, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner view store cannot be nil")
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &CachedViewStore{
		inner: inner,
		cache: cache.New[string, *FoodCartView](cache.Config{
			Name:    "food_cart_view",
			MaxSize: cfg.MaxSize,
			TTL:     cfg.TTL,
		}),
	}, nil
}

// Put 写入底层存储并刷新缓存
func (s *CachedViewStore) Put(ctx context.Context, v *FoodCartView) error {
	if err := s.inner.Put(ctx, v); err != nil {
		return err
	}
	s.cache.Set(v.CartID, v.Clone())
	return nil
}

// Get 优先读缓存，未命中时回源并回填
func (s *CachedViewStore) Get(ctx context.Context, cartID string) (*FoodCartView, error) {
	if cached, found := s.cache.Get(cartID); found {
		return cached.Clone(), nil
	}
	v, err := s.inner.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cartID, v.Clone())
	return v, nil
}

// Stats 暴露缓存命中统计
func (s *CachedViewStore) Stats() cache.CacheStats {
	return s.cache.Stats()
}

var _ IViewStore = (*CachedViewStore)(nil)

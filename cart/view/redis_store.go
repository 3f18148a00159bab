package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "foodcart:view:"

// RedisViewStore 基于 Redis 的视图存储
//
// 每个购物车一个键，值为视图的 JSON 序列化。字段级 last-write-wins 由
// 整行覆盖写保证（投影是唯一写入者，单写者模型下无并发覆盖问题）。
type RedisViewStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisViewStore 创建 Redis 视图存储
func NewRedisViewStore(client redis.UniversalClient, keyPrefix string) (*RedisViewStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}
	return &RedisViewStore{client: client, keyPrefix: keyPrefix}, nil
}

// Put 写入或覆盖视图行
func (s *RedisViewStore) Put(ctx context.Context, v *FoodCartView) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal view %s: %w", v.CartID, err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+v.CartID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to put view %s: %w", v.CartID, err)
	}
	return nil
}

// Get 按购物车 ID 读取视图
func (s *RedisViewStore) Get(ctx context.Context, cartID string) (*FoodCartView, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+cartID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrViewNotFound
		}
		return nil, fmt.Errorf("failed to get view %s: %w", cartID, err)
	}
	v := NewFoodCartView(cartID)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view %s: %w", cartID, err)
	}
	if v.Items == nil {
		v.Items = make(map[string]int)
	}
	return v, nil
}

var _ IViewStore = (*RedisViewStore)(nil)

package view

import (
	"context"
	"sync"
)

// MemoryViewStore 内存视图存储，用于测试与单进程部署
type MemoryViewStore struct {
	mu    sync.RWMutex
	views map[string]*FoodCartView
}

// NewMemoryViewStore 创建内存视图存储
func NewMemoryViewStore() *MemoryViewStore {
	return &MemoryViewStore{
		views: make(map[string]*FoodCartView),
	}
}

// Put 写入或覆盖视图行
func (s *MemoryViewStore) Put(ctx context.Context, v *FoodCartView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[v.CartID] = v.Clone()
	return nil
}

// Get 按购物车 ID 读取视图
func (s *MemoryViewStore) Get(ctx context.Context, cartID string) (*FoodCartView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[cartID]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v.Clone(), nil
}

var _ IViewStore = (*MemoryViewStore)(nil)

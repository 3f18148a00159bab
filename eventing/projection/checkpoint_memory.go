package projection

import (
	"context"
	"sync"
)

// MemoryCheckpointStore 进程内检查点存储。
// 不落盘，重启即丢，只用于开发与测试。
type MemoryCheckpointStore struct {
	checkpoints map[string]*Checkpoint
	mutex       sync.RWMutex
}

var _ ICheckpointStore = (*MemoryCheckpointStore)(nil)

// NewMemoryCheckpointStore 创建内存检查点存储
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		checkpoints: make(map[string]*Checkpoint),
	}
}

// Load 读取检查点副本，不存在时返回 ErrCheckpointNotFound
func (s *MemoryCheckpointStore) Load(ctx context.Context, projectionName string) (*Checkpoint, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	checkpoint, exists := s.checkpoints[projectionName]
	if !exists {
		return nil, ErrCheckpointNotFound
	}
	return checkpoint.Clone(), nil
}

// Save 保存检查点副本，重复保存覆盖旧值
func (s *MemoryCheckpointStore) Save(ctx context.Context, checkpoint *Checkpoint) error {
	if checkpoint == nil || !checkpoint.IsValid() {
		return ErrInvalidCheckpoint
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.checkpoints[checkpoint.ProjectionName] = checkpoint.Clone()
	return nil
}

// Delete 删除检查点，不存在时静默返回
func (s *MemoryCheckpointStore) Delete(ctx context.Context, projectionName string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.checkpoints, projectionName)
	return nil
}

// Count 当前检查点数量，测试断言用
func (s *MemoryCheckpointStore) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.checkpoints)
}

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"foodcart/eventing"
)

// MemoryEventStore 进程内事件存储，用于测试、开发和单机运行
type MemoryEventStore struct {
	mu sync.RWMutex
	// 每个聚合一条按版本号有序的已提交事件流
	streams map[string][]eventing.Event
}

var (
	_ IEventStore         = (*MemoryEventStore)(nil)
	_ IAggregateInspector = (*MemoryEventStore)(nil)
)

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		streams: make(map[string][]eventing.Event),
	}
}

func (m *MemoryEventStore) AppendEvents(ctx context.Context, aggregateID string, events []eventing.IStorableEvent, expectedVersion uint64) error {
	if len(events) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	currentVersion := m.currentVersionLocked(aggregateID)
	if currentVersion != expectedVersion {
		return eventing.NewConcurrencyError(aggregateID, expectedVersion, currentVersion)
	}

	// 先校验整批再写入，保证批次原子性
	batch := make([]eventing.Event, 0, len(events))
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
		wantVersion := expectedVersion + uint64(i) + 1
		if e.GetVersion() != wantVersion {
			return fmt.Errorf("event version not sequential: expected %d, got %d", wantVersion, e.GetVersion())
		}
		event, ok := e.(*eventing.Event)
		if !ok {
			return fmt.Errorf("unsupported event type: %T, expected *eventing.Event", e)
		}
		batch = append(batch, *event)
	}

	m.streams[aggregateID] = append(m.streams[aggregateID], batch...)
	return nil
}

func (m *MemoryEventStore) LoadEvents(ctx context.Context, aggregateID string, afterVersion uint64) ([]eventing.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stream := m.streams[aggregateID]
	res := make([]eventing.Event, 0, len(stream))
	for _, e := range stream {
		if e.GetVersion() > afterVersion {
			res = append(res, e)
		}
	}
	return res, nil
}

func (m *MemoryEventStore) StreamEvents(ctx context.Context, from time.Time) ([]eventing.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []eventing.Event
	for _, stream := range m.streams {
		for _, e := range stream {
			if !from.IsZero() && e.GetTimestamp().Before(from) {
				continue
			}
			res = append(res, e)
		}
	}
	// 时间戳相同（同批写入）时按事件 ID 排序，UUIDv7 ID 与生成顺序一致
	sort.Slice(res, func(i, j int) bool {
		if res[i].GetTimestamp().Equal(res[j].GetTimestamp()) {
			return res[i].GetID() < res[j].GetID()
		}
		return res[i].GetTimestamp().Before(res[j].GetTimestamp())
	})
	return res, nil
}

// HasAggregate 检查聚合是否存在
func (m *MemoryEventStore) HasAggregate(ctx context.Context, aggregateID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.streams[aggregateID]) > 0, nil
}

// GetAggregateVersion 返回聚合当前版本，0 表示聚合不存在
func (m *MemoryEventStore) GetAggregateVersion(ctx context.Context, aggregateID string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentVersionLocked(aggregateID), nil
}

func (m *MemoryEventStore) currentVersionLocked(aggregateID string) uint64 {
	stream := m.streams[aggregateID]
	if len(stream) == 0 {
		return 0
	}
	return stream[len(stream)-1].GetVersion()
}

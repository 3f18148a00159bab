package store

import (
	"context"
	"errors"

	"foodcart/eventing"
)

// AggregateExists 检查聚合是否存在。
// 存储实现了 IAggregateInspector 时走直查，否则回退到加载事件流判断。
func AggregateExists(ctx context.Context, store IEventStore, aggregateID string) (bool, error) {
	if inspector, ok := store.(IAggregateInspector); ok {
		return inspector.HasAggregate(ctx, aggregateID)
	}

	events, err := store.LoadEvents(ctx, aggregateID, 0)
	if err != nil {
		if errors.Is(err, eventing.ErrAggregateNotFound) {
			return false, nil
		}
		return false, err
	}
	return len(events) > 0, nil
}

// GetCurrentVersion 获取聚合当前版本，聚合不存在时返回 (0, nil)。
// 与 AggregateExists 相同，优先使用 IAggregateInspector。
func GetCurrentVersion(ctx context.Context, store IEventStore, aggregateID string) (uint64, error) {
	if inspector, ok := store.(IAggregateInspector); ok {
		return inspector.GetAggregateVersion(ctx, aggregateID)
	}

	events, err := store.LoadEvents(ctx, aggregateID, 0)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	return events[len(events)-1].GetVersion(), nil
}

package eventsourced

import (
	"context"
	"fmt"

	"foodcart/domain"
)

// IEventSourcedRepository 事件溯源仓储
//
// 保存的是聚合的未提交事件而不是状态快照，读取时重放事件流重建状态。
type IEventSourcedRepository[T IEventSourcedAggregate[ID], ID comparable] interface {
	// Save 持久化聚合的未提交事件
	Save(ctx context.Context, aggregate T) error

	// GetByID 重放事件流重建聚合
	GetByID(ctx context.Context, id ID) (T, error)

	// Exists 检查聚合是否存在
	Exists(ctx context.Context, id ID) (bool, error)

	// GetAggregateVersion 返回聚合当前版本，不存在时为 (0, nil)
	GetAggregateVersion(ctx context.Context, id ID) (uint64, error)
}

// IEventStore 领域层的事件存储抽象
//
// 以领域事件为中心，不涉及传输信封与具体存储；
// eventing/store 等基础设施经适配器（app/eventsourced）接入。
type IEventStore interface {
	// AppendEvents 以 expectedVersion 做乐观锁校验后追加事件
	AppendEvents(ctx context.Context, aggregateID string, events []domain.IDomainEvent, expectedVersion uint64) error

	// RestoreAggregate 重放事件流恢复聚合，返回当前版本；
	// 聚合不存在时返回 (0, nil) 且聚合保持初始状态
	RestoreAggregate(ctx context.Context, aggregate IEventSourcedAggregate[string]) (uint64, error)

	// Exists 检查聚合是否存在
	Exists(ctx context.Context, aggregateID string) (bool, error)

	// GetAggregateVersion 返回聚合当前版本，不存在时为 (0, nil)
	GetAggregateVersion(ctx context.Context, aggregateID string) (uint64, error)
}

// EventSourcedRepository 默认仓储实现，只依赖 IEventStore 抽象
type EventSourcedRepository[T IEventSourcedAggregate[string]] struct {
	aggregateType string
	factory       func(id string) T
	store         IEventStore
}

// NewEventSourcedRepository 创建仓储
func NewEventSourcedRepository[T IEventSourcedAggregate[string]](
	aggregateType string,
	factory func(id string) T,
	store IEventStore,
) (*EventSourcedRepository[T], error) {
	if aggregateType == "" {
		return nil, fmt.Errorf("aggregate type cannot be empty")
	}
	if factory == nil {
		return nil, fmt.Errorf("aggregate factory cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("event store cannot be nil")
	}
	return &EventSourcedRepository[T]{
		aggregateType: aggregateType,
		factory:       factory,
		store:         store,
	}, nil
}

// Save 持久化未提交事件
//
// 期望版本是应用未提交事件之前的版本，乐观锁校验由底层存储执行。
func (r *EventSourcedRepository[T]) Save(ctx context.Context, aggregate T) error {
	events := aggregate.GetUncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	currentVersion := uint64(aggregate.GetVersion())
	if currentVersion < uint64(len(events)) {
		// ApplyEvent 覆盖实现漏调基类版本递增时会走到这里
		return fmt.Errorf("version %d lower than uncommitted event count %d for aggregate type %s: ApplyEvent must increment version on every event", currentVersion, len(events), r.aggregateType)
	}
	expectedVersion := currentVersion - uint64(len(events))

	if err := r.store.AppendEvents(ctx, aggregate.GetID(), events, expectedVersion); err != nil {
		return err
	}

	aggregate.MarkEventsAsCommitted()
	return nil
}

// GetByID 重放事件流重建聚合
func (r *EventSourcedRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	aggregate := r.factory(id)
	if _, err := r.store.RestoreAggregate(ctx, aggregate); err != nil {
		return aggregate, err
	}
	return aggregate, nil
}

// Exists 检查聚合是否存在
func (r *EventSourcedRepository[T]) Exists(ctx context.Context, id string) (bool, error) {
	return r.store.Exists(ctx, id)
}

// GetAggregateVersion 返回聚合当前版本
func (r *EventSourcedRepository[T]) GetAggregateVersion(ctx context.Context, id string) (uint64, error) {
	return r.store.GetAggregateVersion(ctx, id)
}

var _ IEventSourcedRepository[IEventSourcedAggregate[string], string] = (*EventSourcedRepository[IEventSourcedAggregate[string]])(nil)

// Package eventsourced 提供事件溯源聚合的基础设施
//
// 聚合状态完全由事件流重建：命令产生事件，ApplyEvent 修改状态，
// 未提交事件经仓储持久化后通过 MarkEventsAsCommitted 清空。
package eventsourced

import (
	"sync"

	"foodcart/domain"
)

// IEventSourcedAggregate 事件溯源聚合根
type IEventSourcedAggregate[T comparable] interface {
	domain.IEntity[T]

	// GetAggregateType 返回聚合类型名称
	GetAggregateType() string

	// ApplyEvent 应用事件修改聚合状态，重放与实时应用共用同一路径
	ApplyEvent(evt domain.IDomainEvent) error

	// GetUncommittedEvents 返回尚未持久化的事件
	GetUncommittedEvents() []domain.IDomainEvent

	// MarkEventsAsCommitted 持久化成功后清空未提交事件
	MarkEventsAsCommitted()
}

// EventSourcedAggregate 聚合根的泛型基类
//
// 具体聚合内嵌本类型并覆盖 ApplyEvent 与 ApplyAndRecord。
// Go 的方法提升是静态绑定，基类 ApplyAndRecord 调不到子类的
// ApplyEvent，覆盖 ApplyAndRecord 是使用契约的一部分。
type EventSourcedAggregate[T comparable] struct {
	id                T
	version           uint64
	uncommittedEvents []domain.IDomainEvent
	aggregateType     string
	mu                sync.RWMutex
}

// NewEventSourcedAggregate 创建聚合基类，版本从 0 开始
func NewEventSourcedAggregate[T comparable](id T, aggregateType string) *EventSourcedAggregate[T] {
	return &EventSourcedAggregate[T]{
		id:            id,
		aggregateType: aggregateType,
	}
}

func (a *EventSourcedAggregate[T]) GetID() T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.id
}

func (a *EventSourcedAggregate[T]) GetVersion() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return int64(a.version)
}

func (a *EventSourcedAggregate[T]) GetAggregateType() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.aggregateType
}

// AddDomainEvent 记录一条未提交事件
func (a *EventSourcedAggregate[T]) AddDomainEvent(evt domain.IDomainEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uncommittedEvents = append(a.uncommittedEvents, evt)
}

// GetUncommittedEvents 返回未提交事件的副本
func (a *EventSourcedAggregate[T]) GetUncommittedEvents() []domain.IDomainEvent {
	a.mu.RLock()
	defer a.mu.RUnlock()
	events := make([]domain.IDomainEvent, len(a.uncommittedEvents))
	copy(events, a.uncommittedEvents)
	return events
}

// MarkEventsAsCommitted 清空未提交事件
func (a *EventSourcedAggregate[T]) MarkEventsAsCommitted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uncommittedEvents = nil
}

// ApplyEvent 默认实现只递增版本号
//
// 具体聚合覆盖本方法处理业务状态，末尾回调基类实现完成版本递增。
func (a *EventSourcedAggregate[T]) ApplyEvent(evt domain.IDomainEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.version++
	return nil
}

// ApplyAndRecord 应用事件并记录为未提交
//
// 基类版本只在测试或无状态聚合中直接可用，具体聚合必须覆盖，
// 否则状态更新不会经过子类的 ApplyEvent。
func (a *EventSourcedAggregate[T]) ApplyAndRecord(evt domain.IDomainEvent) error {
	if err := a.ApplyEvent(evt); err != nil {
		return err
	}
	a.AddDomainEvent(evt)
	return nil
}

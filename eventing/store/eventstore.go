package store

import (
	"context"
	"time"

	"foodcart/eventing"
)

// IEventStore 事件存储。
// 聚合的事件流按版本号有序追加，expectedVersion 作乐观锁：
// 它是事件流上一次已提交的版本号，0 表示新聚合。
// 同一批事件要么全部写入，要么一个都不写入。
type IEventStore interface {
	// AppendEvents 追加事件到聚合的事件流。
	// 版本冲突返回 ConcurrencyError，其他失败返回 EventStoreError。
	AppendEvents(ctx context.Context, aggregateID string, events []eventing.IStorableEvent, expectedVersion uint64) error

	// LoadEvents 按版本号升序加载聚合事件，只返回 afterVersion 之后的事件，
	// afterVersion 为 0 时从头加载。
	LoadEvents(ctx context.Context, aggregateID string, afterVersion uint64) ([]eventing.Event, error)

	// StreamEvents 按时间戳升序读取 fromTime（含）之后的全部事件，
	// 供投影重放和恢复使用。
	StreamEvents(ctx context.Context, fromTime time.Time) ([]eventing.Event, error)
}

// IAggregateInspector 可选扩展：不加载事件流即可查询聚合的存在性与版本。
// 实现该接口的存储能省去纯校验场景下的整流加载。
type IAggregateInspector interface {
	// HasAggregate 检查聚合是否存在
	HasAggregate(ctx context.Context, aggregateID string) (bool, error)

	// GetAggregateVersion 返回聚合当前版本，0 表示聚合不存在
	GetAggregateVersion(ctx context.Context, aggregateID string) (uint64, error)
}

package eventsourced

import (
	"context"
	"fmt"
	"time"

	"foodcart/eventing"
)

// EventHistoryEntry 单个事件的可读历史视图
//
// SummaryKey 配合 SummaryParams 由上层渲染文案，ActorID 取自事件
// 元数据，RawPayload 仅在需要展示原始载荷时携带。
type EventHistoryEntry struct {
	EventID       string         `json:"event_id"`
	AggregateID   string         `json:"aggregate_id"`
	AggregateType string         `json:"aggregate_type"`
	Version       uint64         `json:"version"`
	EventType     string         `json:"event_type"`
	OccurredAt    time.Time      `json:"occurred_at"`
	ActorID       string         `json:"actor_id,omitempty"`
	SummaryKey    string         `json:"summary_key"`
	SummaryParams map[string]any `json:"summary_params,omitempty"`
	RawPayload    any            `json:"raw_payload,omitempty"`
}

// EventHistoryPage 分页后的历史记录
type EventHistoryPage struct {
	Entries  []*EventHistoryEntry `json:"entries"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

// EventHistoryMapper 事件到历史条目的映射，返回 nil 表示该事件不展示
type EventHistoryMapper func(evt eventing.IEvent) *EventHistoryEntry

// IEventHistorySource 事件历史读取能力
//
// IEventStore 适配器按需实现，未实现时历史查询直接报错。
type IEventHistorySource interface {
	LoadEventHistory(ctx context.Context, aggregateID string, afterVersion uint64) ([]eventing.IEvent, error)
}

// defaultEventHistoryMapper 以事件类型为 SummaryKey，原样携带载荷
func defaultEventHistoryMapper(evt eventing.IEvent) *EventHistoryEntry {
	envelope, ok := evt.(*eventing.Event)
	if !ok {
		return nil
	}
	actor := ""
	if md := envelope.GetMetadata(); md != nil {
		if v, ok := md["actor_id"].(string); ok {
			actor = v
		}
	}
	return &EventHistoryEntry{
		EventID:       envelope.GetID(),
		AggregateID:   envelope.GetAggregateID(),
		AggregateType: envelope.GetAggregateType(),
		Version:       envelope.GetVersion(),
		EventType:     envelope.GetType(),
		OccurredAt:    envelope.GetTimestamp(),
		ActorID:       actor,
		SummaryKey:    envelope.GetType(),
		SummaryParams: map[string]any{"payload": envelope.GetPayload()},
		RawPayload:    envelope.GetPayload(),
	}
}

// GetEventHistory 读取聚合的完整事件历史
func (r *EventSourcedRepository[T]) GetEventHistory(ctx context.Context, id string) ([]eventing.IEvent, error) {
	return r.GetEventHistoryAfter(ctx, id, 0)
}

// GetEventHistoryAfter 读取指定版本之后的事件历史
func (r *EventSourcedRepository[T]) GetEventHistoryAfter(ctx context.Context, id string, afterVersion uint64) ([]eventing.IEvent, error) {
	source, ok := r.store.(IEventHistorySource)
	if !ok {
		return nil, fmt.Errorf("event store %T does not expose event history", r.store)
	}
	return source.LoadEventHistory(ctx, id, afterVersion)
}

// GetEventHistoryPage 分页读取聚合的历史视图
//
// page 从 1 开始，越界页返回空列表但保留总数；mapper 为 nil 时用默认映射。
func (r *EventSourcedRepository[T]) GetEventHistoryPage(
	ctx context.Context,
	id string,
	page int,
	pageSize int,
	mapper EventHistoryMapper,
) (*EventHistoryPage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if mapper == nil {
		mapper = defaultEventHistoryMapper
	}

	events, err := r.GetEventHistory(ctx, id)
	if err != nil {
		return nil, err
	}

	entries := make([]*EventHistoryEntry, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		if entry := mapper(e); entry != nil {
			entries = append(entries, entry)
		}
	}

	result := &EventHistoryPage{
		Entries:  []*EventHistoryEntry{},
		Total:    len(entries),
		Page:     page,
		PageSize: pageSize,
	}
	start := (page - 1) * pageSize
	if start < len(entries) {
		end := start + pageSize
		if end > len(entries) {
			end = len(entries)
		}
		result.Entries = entries[start:end]
	}
	return result, nil
}

package eventsourced

import (
	"context"
	"errors"
	"fmt"

	"foodcart/domain"
	deventsourced "foodcart/domain/eventsourced"
	appErrors "foodcart/errors"
	"foodcart/eventing"
	"foodcart/eventing/bus"
	"foodcart/eventing/store"
	"foodcart/logging"
)

var (
	_ deventsourced.IEventStore         = (*DomainEventStore)(nil)
	_ deventsourced.IEventHistorySource = (*DomainEventStore)(nil)
)

// DomainEventStoreOptions 构造参数，EventBus 为空或 PublishEvents 关闭时只持久化不发布
type DomainEventStoreOptions struct {
	AggregateType string
	EventStore    store.IEventStore
	EventBus      bus.IEventBus
	PublishEvents bool
	Logger        logging.Logger
}

// DomainEventStore 把 eventing/store.IEventStore 与 EventBus
// 适配成领域层的 deventsourced.IEventStore
type DomainEventStore struct {
	aggregateType string
	eventStore    store.IEventStore
	eventBus      bus.IEventBus
	publishEvents bool
	logger        logging.Logger
}

func NewDomainEventStore(opts DomainEventStoreOptions) (*DomainEventStore, error) {
	if opts.AggregateType == "" {
		return nil, fmt.Errorf("aggregate type cannot be empty")
	}
	if opts.EventStore == nil {
		return nil, fmt.Errorf("event store cannot be nil")
	}
	adapter := &DomainEventStore{
		aggregateType: opts.AggregateType,
		eventStore:    opts.EventStore,
		eventBus:      opts.EventBus,
		publishEvents: opts.PublishEvents,
		logger:        opts.Logger,
	}
	if adapter.logger == nil {
		adapter.logger = logging.ComponentLogger("app.eventsourced.domain_event_store").
			WithFields(logging.String("aggregate_type", opts.AggregateType))
	}

	// 持久化与发布是两步操作，发布失败时下游要靠投影重放补齐
	if opts.PublishEvents && opts.EventBus != nil {
		adapter.logger.Warn(context.Background(),
			"event persistence and publishing are non-atomic, subscribers may miss events until the projection is replayed")
	}

	return adapter, nil
}

// AppendEvents 为领域事件分配版本号（expectedVersion+i+1）并持久化，
// 成功后按配置发布到事件总线。乐观锁与版本连续性由存储侧校验。
func (a *DomainEventStore) AppendEvents(ctx context.Context, aggregateID string, events []domain.IDomainEvent, expectedVersion uint64) error {
	if len(events) == 0 {
		return nil
	}

	storableEvents := make([]eventing.IStorableEvent, 0, len(events))
	publishedEvents := make([]eventing.IEvent, 0, len(events))
	for i, de := range events {
		if de == nil {
			return fmt.Errorf("domain event cannot be nil at index %d", i)
		}
		if de.EventType() == "" {
			return fmt.Errorf("domain event type cannot be empty: %T", de)
		}
		evt := eventing.NewDomainEvent(aggregateID, a.aggregateType, de.EventType(),
			expectedVersion+uint64(i)+1, de)
		storableEvents = append(storableEvents, evt)
		publishedEvents = append(publishedEvents, evt)
	}

	if err := a.eventStore.AppendEvents(ctx, aggregateID, storableEvents, expectedVersion); err != nil {
		return err
	}

	if a.publishEvents && a.eventBus != nil {
		if err := a.eventBus.PublishEvents(ctx, publishedEvents); err != nil {
			// 持久化已成功，发布失败作为依赖错误上抛
			return appErrors.WrapWithLog(ctx, err, appErrors.ErrCodeDependency,
				"failed to publish domain events",
				logging.String("aggregate_id", aggregateID),
				logging.String("aggregate_type", a.aggregateType),
			)
		}
	}
	return nil
}

// RestoreAggregate 重放事件流恢复聚合状态，聚合不存在时返回版本 0
func (a *DomainEventStore) RestoreAggregate(ctx context.Context, aggregate deventsourced.IEventSourcedAggregate[string]) (uint64, error) {
	if aggregate == nil {
		return 0, fmt.Errorf("aggregate cannot be nil")
	}

	events, err := a.eventStore.LoadEvents(ctx, aggregate.GetID(), 0)
	if err != nil {
		if errors.Is(err, eventing.ErrAggregateNotFound) {
			return 0, nil
		}
		return 0, err
	}

	for i := range events {
		payload := events[i].GetPayload()
		domainEvt, ok := payload.(domain.IDomainEvent)
		if !ok {
			return 0, fmt.Errorf("event payload does not implement IDomainEvent: %T", payload)
		}
		if err := aggregate.ApplyEvent(domainEvt); err != nil {
			return 0, fmt.Errorf("apply event failed: %w", err)
		}
	}
	aggregate.MarkEventsAsCommitted()

	if len(events) > 0 {
		return events[len(events)-1].Version, nil
	}
	return 0, nil
}

func (a *DomainEventStore) Exists(ctx context.Context, aggregateID string) (bool, error) {
	return store.AggregateExists(ctx, a.eventStore, aggregateID)
}

func (a *DomainEventStore) GetAggregateVersion(ctx context.Context, aggregateID string) (uint64, error) {
	return store.GetCurrentVersion(ctx, a.eventStore, aggregateID)
}

// LoadEventHistory 读取聚合事件历史，供历史视图使用
func (a *DomainEventStore) LoadEventHistory(ctx context.Context, aggregateID string, afterVersion uint64) ([]eventing.IEvent, error) {
	events, err := a.eventStore.LoadEvents(ctx, aggregateID, afterVersion)
	if err != nil {
		return nil, err
	}
	result := make([]eventing.IEvent, len(events))
	for i := range events {
		e := events[i]
		result[i] = &e
	}
	return result, nil
}

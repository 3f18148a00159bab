package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"foodcart/cart"
	"foodcart/eventing"
	"foodcart/eventing/projection"
	"foodcart/logging"
)

// ProjectionName 购物车视图投影名
const ProjectionName = "food_cart_view"

// FoodCartProjection 购物车视图投影
//
// 订阅创建/选购/取消选购三类事件（确认只存在于写侧，视图没有确认字段），
// 按每个购物车的追加顺序增量更新视图存储。对尚无视图行的变更事件静默忽略：
// 正常运行下创建先于变更（同一标识内全序），忽略只发生在病态竞争里。
type FoodCartProjection struct {
	store  IViewStore
	logger logging.Logger

	statusMu sync.RWMutex
	status   projection.ProjectionStatus
}

// NewFoodCartProjection 创建购物车视图投影
func NewFoodCartProjection(store IViewStore, logger logging.Logger) (*FoodCartProjection, error) {
	if store == nil {
		return nil, fmt.Errorf("view store cannot be nil")
	}
	if logger == nil {
		logger = logging.ComponentLogger("cart.view.projection")
	}
	return &FoodCartProjection{
		store:  store,
		logger: logger,
		status: projection.ProjectionStatus{
			Name:      ProjectionName,
			Status:    "stopped",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}, nil
}

// GetName 投影名称
func (p *FoodCartProjection) GetName() string {
	return ProjectionName
}

// GetSupportedEventTypes 订阅的事件类型
func (p *FoodCartProjection) GetSupportedEventTypes() []string {
	return []string{
		cart.EventTypeFoodCartCreated,
		cart.EventTypeProductSelected,
		cart.EventTypeProductDeselected,
	}
}

// Handle 处理单个事件
func (p *FoodCartProjection) Handle(ctx context.Context, evt eventing.IEvent) error {
	domainEvent, ok := evt.(*eventing.Event)
	if !ok {
		return fmt.Errorf("projection expects *eventing.Event, got %T", evt)
	}
	if err := p.apply(ctx, domainEvent); err != nil {
		p.updateStatusError(domainEvent, err)
		return err
	}
	p.updateStatusSuccess(domainEvent)
	return nil
}

func (p *FoodCartProjection) apply(ctx context.Context, evt *eventing.Event) error {
	switch payload := evt.Payload.(type) {
	case *cart.FoodCartCreated:
		return p.store.Put(ctx, NewFoodCartView(payload.CartID))

	case *cart.ProductSelected:
		v, err := p.store.Get(ctx, payload.CartID)
		if err != nil {
			return p.ignoreMissingRow(ctx, evt, err)
		}
		v.AddProducts(payload.ProductID, payload.Quantity)
		return p.store.Put(ctx, v)

	case *cart.ProductDeselected:
		v, err := p.store.Get(ctx, payload.CartID)
		if err != nil {
			return p.ignoreMissingRow(ctx, evt, err)
		}
		v.RemoveProducts(payload.ProductID, payload.Quantity)
		return p.store.Put(ctx, v)

	default:
		// 未订阅的事件类型不应到达这里
		p.logger.Warn(ctx, "ignoring event with unexpected payload",
			logging.String("event_type", evt.Type),
			logging.String("event_id", evt.ID))
		return nil
	}
}

// ignoreMissingRow 变更事件先于创建事件到达时静默忽略，其他存储错误原样返回
func (p *FoodCartProjection) ignoreMissingRow(ctx context.Context, evt *eventing.Event, err error) error {
	if errors.Is(err, ErrViewNotFound) {
		p.logger.Debug(ctx, "view row missing, ignoring mutation event",
			logging.String("cart_id", evt.AggregateID),
			logging.String("event_type", evt.Type))
		return nil
	}
	return err
}

// Rebuild 从事件序列整体重建
func (p *FoodCartProjection) Rebuild(ctx context.Context, events []eventing.Event) error {
	for i := range events {
		if err := p.Handle(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetStatus 投影状态
func (p *FoodCartProjection) GetStatus() projection.ProjectionStatus {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

func (p *FoodCartProjection) updateStatusSuccess(evt *eventing.Event) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastEventID = evt.ID
	p.status.LastEventTime = evt.Timestamp
	p.status.ProcessedEvents++
	p.status.Status = "running"
	p.status.LastError = ""
	p.status.UpdatedAt = time.Now()
}

func (p *FoodCartProjection) updateStatusError(evt *eventing.Event, err error) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastEventID = evt.ID
	p.status.LastEventTime = evt.Timestamp
	p.status.FailedEvents++
	p.status.Status = "error"
	p.status.LastError = err.Error()
	p.status.UpdatedAt = time.Now()
}

var _ projection.IProjection = (*FoodCartProjection)(nil)

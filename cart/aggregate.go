package cart

import (
	"fmt"

	"foodcart/domain"
	deventsourced "foodcart/domain/eventsourced"
)

// FoodCart 食品购物车聚合
//
// 状态完全由事件历史回放推导，从不直接持久化。
// SelectedProducts 的应用规则刻意保留一处不对称：取消选购把数量扣到零时
// 键仍被保留（读模型侧则会删除该键），这是源系统的既有行为，保持不变。
type FoodCart struct {
	*deventsourced.EventSourcedAggregate[string]

	SelectedProducts map[string]int
	Confirmed        bool
}

// NewFoodCart 创建空购物车聚合（未创建状态，版本 0）
func NewFoodCart(id string) *FoodCart {
	return &FoodCart{
		EventSourcedAggregate: deventsourced.NewEventSourcedAggregate[string](id, AggregateType),
	}
}

// Create 初始化购物车，仅允许在无任何历史时调用
func (c *FoodCart) Create() error {
	if c.GetVersion() != 0 {
		return fmt.Errorf("food cart %s already created: %w", c.GetID(), domain.ErrEntityAlreadyExists)
	}
	return c.ApplyAndRecord(&FoodCartCreated{CartID: c.GetID()})
}

// Select 选购商品，无数量校验，不受确认状态约束
func (c *FoodCart) Select(productID string, quantity int) error {
	return c.ApplyAndRecord(&ProductSelected{CartID: c.GetID(), ProductID: productID, Quantity: quantity})
}

// Deselect 取消选购商品
//
// 商品必须已被选购且扣减后不为负，否则返回 ProductDeselectionError 且不产生事件。
func (c *FoodCart) Deselect(productID string, quantity int) error {
	current, ok := c.SelectedProducts[productID]
	if !ok {
		return newProductNeverSelectedError(c.GetID(), productID)
	}
	if current-quantity < 0 {
		return newDeselectTooManyError(c.GetID(), productID)
	}
	return c.ApplyAndRecord(&ProductDeselected{CartID: c.GetID(), ProductID: productID, Quantity: quantity})
}

// Confirm 确认订单
//
// 返回值表示本次调用是否真正产生了确认事件：已确认的购物车返回 (false, nil)，
// 不产生事件也不报错（幂等确认）。
func (c *FoodCart) Confirm() (bool, error) {
	if c.Confirmed {
		return false, nil
	}
	if err := c.ApplyAndRecord(&OrderConfirmed{CartID: c.GetID()}); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyAndRecord 应用事件并记录为未提交
//
// Go 没有虚函数机制，基类的 ApplyAndRecord 只会静态调用基类 ApplyEvent，
// 必须在本层覆盖才能让状态更新经过 FoodCart.ApplyEvent。
func (c *FoodCart) ApplyAndRecord(evt domain.IDomainEvent) error {
	if err := c.ApplyEvent(evt); err != nil {
		return err
	}
	c.AddDomainEvent(evt)
	return nil
}

// ApplyEvent 事件应用规则，回放与写后更新共用同一套规则
func (c *FoodCart) ApplyEvent(evt domain.IDomainEvent) error {
	switch e := evt.(type) {
	case *FoodCartCreated:
		c.SelectedProducts = make(map[string]int)
		c.Confirmed = false
	case *ProductSelected:
		c.SelectedProducts[e.ProductID] += e.Quantity
	case *ProductDeselected:
		// 仅在键存在时扣减，扣到零也保留键（computeIfPresent 语义）
		if _, ok := c.SelectedProducts[e.ProductID]; ok {
			c.SelectedProducts[e.ProductID] -= e.Quantity
		}
	case *OrderConfirmed:
		c.Confirmed = true
	}
	return c.EventSourcedAggregate.ApplyEvent(evt)
}

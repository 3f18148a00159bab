// Package cart 实现食品购物车聚合：以事件溯源方式记录选购、取消选购与下单确认
package cart

import "foodcart/eventing/registry"

// 事件类型常量
const (
	EventTypeFoodCartCreated   = "FoodCartCreated"
	EventTypeProductSelected   = "ProductSelected"
	EventTypeProductDeselected = "ProductDeselected"
	EventTypeOrderConfirmed    = "OrderConfirmed"
)

// AggregateType 购物车聚合类型名
const AggregateType = "food_cart"

// FoodCartCreated 购物车创建事件
type FoodCartCreated struct {
	CartID string `json:"cart_id"`
}

func (e *FoodCartCreated) EventType() string { return EventTypeFoodCartCreated }

// ProductSelected 商品选购事件
type ProductSelected struct {
	CartID    string `json:"cart_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (e *ProductSelected) EventType() string { return EventTypeProductSelected }

// ProductDeselected 商品取消选购事件
type ProductDeselected struct {
	CartID    string `json:"cart_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (e *ProductDeselected) EventType() string { return EventTypeProductDeselected }

// OrderConfirmed 订单确认事件
type OrderConfirmed struct {
	CartID string `json:"cart_id"`
}

func (e *OrderConfirmed) EventType() string { return EventTypeOrderConfirmed }

func eventFactories() map[string]registry.EventFactory {
	return map[string]registry.EventFactory{
		EventTypeFoodCartCreated:   func() interface{} { return &FoodCartCreated{} },
		EventTypeProductSelected:   func() interface{} { return &ProductSelected{} },
		EventTypeProductDeselected: func() interface{} { return &ProductDeselected{} },
		EventTypeOrderConfirmed:    func() interface{} { return &OrderConfirmed{} },
	}
}

// RegisterEventTypes 将购物车事件注册到事件类型注册表，用于从持久化载荷反序列化
func RegisterEventTypes(r *registry.Registry) {
	for eventType, factory := range eventFactories() {
		r.MustRegister(eventType, factory)
	}
}

// RegisterGlobalEventTypes 注册到全局注册表（SQL 事件存储回放时按类型还原载荷）
func RegisterGlobalEventTypes() {
	for eventType, factory := range eventFactories() {
		registry.MustRegisterGlobal(eventType, factory)
	}
}

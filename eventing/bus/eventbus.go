// Package bus 在通用消息总线之上提供事件语义：
// 事件类型即消息主题，处理器以事件接口收发。
package bus

import (
	"context"
	"fmt"

	"foodcart/eventing"
	"foodcart/messaging"
)

// IEventHandler 事件处理器。
// GetEventTypes 声明关心的事件类型，"*" 表示全部。
type IEventHandler interface {
	messaging.IMessageHandler
	HandleEvent(ctx context.Context, evt eventing.IEvent) error
	GetEventTypes() []string
	GetHandlerName() string
}

// EventHandlerFunc 将函数适配为处理全部事件类型的处理器
type EventHandlerFunc func(ctx context.Context, evt eventing.IEvent) error

func (f EventHandlerFunc) HandleEvent(ctx context.Context, evt eventing.IEvent) error {
	return f(ctx, evt)
}

func (f EventHandlerFunc) Handle(ctx context.Context, message messaging.IMessage) error {
	evt, ok := message.(eventing.IEvent)
	if !ok {
		return fmt.Errorf("message is not an event: %T", message)
	}
	return f(ctx, evt)
}

func (f EventHandlerFunc) GetEventTypes() []string { return []string{"*"} }
func (f EventHandlerFunc) GetHandlerName() string  { return "EventHandlerFunc" }
func (f EventHandlerFunc) Type() string            { return "*" }

// IEventBus 事件总线
type IEventBus interface {
	messaging.IMessageBus
	PublishEvent(ctx context.Context, evt eventing.IEvent) error
	PublishEvents(ctx context.Context, events []eventing.IEvent) error
	SubscribeEvent(ctx context.Context, eventType string, handler IEventHandler) error
	UnsubscribeEvent(ctx context.Context, eventType string, handler IEventHandler) error
	// 按处理器声明的事件类型批量订阅与退订
	SubscribeHandler(ctx context.Context, handler IEventHandler) error
	UnsubscribeHandler(ctx context.Context, handler IEventHandler) error
}

// EventBus 把事件发布与订阅委托给底层消息总线
type EventBus struct {
	messaging.IMessageBus
}

// NewEventBus 创建事件总线
func NewEventBus(messageBus messaging.IMessageBus) *EventBus {
	return &EventBus{IMessageBus: messageBus}
}

// PublishEvent 发布单个事件，事件类型作为消息主题
func (eb *EventBus) PublishEvent(ctx context.Context, evt eventing.IEvent) error {
	return eb.IMessageBus.Publish(ctx, evt)
}

// PublishEvents 按序发布一批事件
func (eb *EventBus) PublishEvents(ctx context.Context, events []eventing.IEvent) error {
	messages := make([]messaging.IMessage, len(events))
	for i, e := range events {
		messages[i] = e
	}
	return eb.IMessageBus.PublishAll(ctx, messages)
}

// SubscribeEvent 订阅指定事件类型
func (eb *EventBus) SubscribeEvent(ctx context.Context, eventType string, handler IEventHandler) error {
	return eb.IMessageBus.Subscribe(ctx, eventType, handler)
}

// UnsubscribeEvent 退订指定事件类型
func (eb *EventBus) UnsubscribeEvent(ctx context.Context, eventType string, handler IEventHandler) error {
	return eb.IMessageBus.Unsubscribe(ctx, eventType, handler)
}

// SubscribeHandler 订阅处理器声明的全部事件类型
func (eb *EventBus) SubscribeHandler(ctx context.Context, handler IEventHandler) error {
	for _, t := range handlerEventTypes(handler) {
		if err := eb.SubscribeEvent(ctx, t, handler); err != nil {
			return err
		}
	}
	return nil
}

// UnsubscribeHandler 退订处理器声明的全部事件类型
func (eb *EventBus) UnsubscribeHandler(ctx context.Context, handler IEventHandler) error {
	for _, t := range handlerEventTypes(handler) {
		if err := eb.UnsubscribeEvent(ctx, t, handler); err != nil {
			return err
		}
	}
	return nil
}

// 未声明任何类型的处理器按通配订阅处理
func handlerEventTypes(handler IEventHandler) []string {
	types := handler.GetEventTypes()
	if len(types) == 0 {
		return []string{"*"}
	}
	return types
}

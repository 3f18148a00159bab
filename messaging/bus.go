// Package messaging 提供消息总线的核心抽象：发布、订阅、中间件与传输层
package messaging

import (
	"context"
	"fmt"
	"sync"
)

// IMiddleware 消息中间件，按注册顺序包裹发布路径
type IMiddleware interface {
	Handle(ctx context.Context, message IMessage, next HandlerFunc) error
	Name() string
}

// IMessageBus 消息总线
type IMessageBus interface {
	Subscribe(ctx context.Context, messageType string, handler IMessageHandler) error
	Unsubscribe(ctx context.Context, messageType string, handler IMessageHandler) error
	Publish(ctx context.Context, message IMessage) error
	PublishAll(ctx context.Context, messages []IMessage) error
	Use(middleware IMiddleware)
}

// MessageBus 把实际投递委托给 Transport，发布前依次执行中间件链
type MessageBus struct {
	transport   Transport
	middlewares []IMiddleware
	mutex       sync.RWMutex
}

// NewMessageBus 创建消息总线
func NewMessageBus(transport Transport) *MessageBus {
	return &MessageBus{
		transport:   transport,
		middlewares: make([]IMiddleware, 0),
	}
}

// Use 追加中间件，注册顺序即执行顺序
func (bus *MessageBus) Use(middleware IMiddleware) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	bus.middlewares = append(bus.middlewares, middleware)
}

// Subscribe 订阅消息类型
func (bus *MessageBus) Subscribe(ctx context.Context, messageType string, handler IMessageHandler) error {
	return bus.transport.Subscribe(messageType, handler)
}

// Unsubscribe 退订消息类型
func (bus *MessageBus) Unsubscribe(ctx context.Context, messageType string, handler IMessageHandler) error {
	return bus.transport.Unsubscribe(messageType, handler)
}

// Publish 发布单条消息，先过中间件链再进传输层
func (bus *MessageBus) Publish(ctx context.Context, message IMessage) error {
	return bus.runChain(ctx, message, func(ctx context.Context, msg IMessage) error {
		return bus.transport.Publish(ctx, msg)
	})
}

// PublishAll 发布一批消息。
// 每条消息先单独过中间件链，全部通过后整批进传输层，
// 任何一条被中间件拒绝都会放弃整批。
func (bus *MessageBus) PublishAll(ctx context.Context, messages []IMessage) error {
	if len(messages) == 0 {
		return nil
	}

	batched := make([]IMessage, 0, len(messages))
	for _, message := range messages {
		err := bus.runChain(ctx, message, func(ctx context.Context, msg IMessage) error {
			batched = append(batched, msg)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to publish message %s: %w", message.GetID(), err)
		}
	}

	if len(batched) == 0 {
		return nil
	}
	if err := bus.transport.PublishAll(ctx, batched); err != nil {
		return fmt.Errorf("failed to publish batch (%d messages): %w", len(batched), err)
	}
	return nil
}

// runChain 逆序折叠中间件，使第一个注册的最先执行
func (bus *MessageBus) runChain(ctx context.Context, message IMessage, terminal HandlerFunc) error {
	bus.mutex.RLock()
	middlewares := bus.middlewares
	bus.mutex.RUnlock()

	next := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		middleware := middlewares[i]
		inner := next
		next = func(ctx context.Context, msg IMessage) error {
			return middleware.Handle(ctx, msg, inner)
		}
	}
	return next(ctx, message)
}

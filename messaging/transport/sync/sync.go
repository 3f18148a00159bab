// Package sync 同步消息传输，发布方 goroutine 内直接调用处理器。
// 命令总线与测试场景使用，处理器错误直接返回给发布方。
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"foodcart/messaging"
)

// SyncTransport 无队列的进程内传输，Publish 返回即代表全部处理器执行完毕
type SyncTransport struct {
	handlers map[string][]messaging.IMessageHandler
	mutex    sync.RWMutex
	running  bool
}

func NewSyncTransport() *SyncTransport {
	return &SyncTransport{
		handlers: make(map[string][]messaging.IMessageHandler),
	}
}

// Publish 同步分发给精确匹配与 "*" 订阅的处理器，
// 无订阅者不算错误，多个处理器失败时错误合并返回
func (t *SyncTransport) Publish(ctx context.Context, message messaging.IMessage) error {
	handlers, err := t.snapshotHandlers(message.GetType())
	if err != nil {
		return err
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("message handling completed with %d errors: %w",
			len(errs), errors.Join(errs...))
	}
	return nil
}

// PublishAll 逐条同步发布，任一条失败即停止
func (t *SyncTransport) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	for _, message := range messages {
		if err := t.Publish(ctx, message); err != nil {
			return fmt.Errorf("failed to publish message %s: %w", message.GetID(), err)
		}
	}
	return nil
}

// snapshotHandlers 在读锁内拷贝处理器快照，调用发生在锁外
func (t *SyncTransport) snapshotHandlers(messageType string) ([]messaging.IMessageHandler, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if !t.running {
		return nil, fmt.Errorf("sync transport is not running")
	}

	exact := t.handlers[messageType]
	wildcard := t.handlers["*"]
	handlers := make([]messaging.IMessageHandler, 0, len(exact)+len(wildcard))
	handlers = append(handlers, exact...)
	handlers = append(handlers, wildcard...)
	return handlers, nil
}

// Subscribe 注册处理器，"*" 订阅所有消息
func (t *SyncTransport) Subscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.handlers[messageType] = append(t.handlers[messageType], handler)
	return nil
}

// Unsubscribe 移除处理器，未注册时报错
func (t *SyncTransport) Unsubscribe(messageType string, handler messaging.IMessageHandler) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	handlers, ok := t.handlers[messageType]
	if !ok {
		return fmt.Errorf("no handlers for message type %s", messageType)
	}
	for i, h := range handlers {
		if h == handler {
			t.handlers[messageType] = append(handlers[:i], handlers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("handler not found for message type %s", messageType)
}

func (t *SyncTransport) Start(ctx context.Context) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.running {
		return fmt.Errorf("sync transport is already running")
	}
	t.running = true
	return nil
}

func (t *SyncTransport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if !t.running {
		return fmt.Errorf("sync transport is not running")
	}
	t.running = false
	return nil
}

// Stats 返回运行状态与订阅规模
func (t *SyncTransport) Stats() messaging.TransportStats {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	handlerCount := 0
	messageTypes := make([]string, 0, len(t.handlers))
	for messageType, handlers := range t.handlers {
		messageTypes = append(messageTypes, messageType)
		handlerCount += len(handlers)
	}

	return messaging.TransportStats{
		Running:      t.running,
		HandlerCount: handlerCount,
		MessageTypes: messageTypes,
	}
}

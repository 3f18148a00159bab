// Package memory 基于内存队列与 worker 池的异步消息传输，
// 适用于单机部署、开发环境和测试
package memory

import (
	"context"
	"fmt"
	"sync"

	"foodcart/logging"
	"foodcart/messaging"
)

const (
	defaultQueueSize   = 1000
	defaultWorkerCount = 4
)

// MemoryTransport 进程内异步传输。
// 消息进入有界队列，由 worker 池取出后分发给订阅的处理器，
// 处理器错误只记日志不回传发布方。
type MemoryTransport struct {
	handlers    map[string][]messaging.IMessageHandler
	queue       chan messaging.IMessage
	queueSize   int
	workerCount int
	logger      logging.Logger
	running     bool
	mutex       sync.RWMutex
	wg          sync.WaitGroup
}

// NewMemoryTransport 创建内存传输，参数不合法时回落默认值（队列 1000，worker 4）
func NewMemoryTransport(queueSize, workerCount int) *MemoryTransport {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	return &MemoryTransport{
		handlers:    make(map[string][]messaging.IMessageHandler),
		queue:       make(chan messaging.IMessage, queueSize),
		queueSize:   queueSize,
		workerCount: workerCount,
		logger:      logging.ComponentLogger("transport.memory"),
	}
}

// Publish 消息入队，队列满或未启动时直接报错而不是阻塞
func (t *MemoryTransport) Publish(ctx context.Context, message messaging.IMessage) error {
	if !t.isRunning() {
		return fmt.Errorf("memory transport is not running")
	}

	select {
	case t.queue <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("message queue is full")
	}
}

// PublishAll 逐条入队，遇到队列满或取消时停止并报错
func (t *MemoryTransport) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	if len(messages) == 0 {
		return nil
	}
	if !t.isRunning() {
		return fmt.Errorf("memory transport is not running")
	}

	for _, message := range messages {
		select {
		case t.queue <- message:
		case <-ctx.Done():
			return ctx.Err()
		default:
			return fmt.Errorf("message queue is full")
		}
	}
	return nil
}

func (t *MemoryTransport) isRunning() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.running
}

// Stats 返回运行状态与队列、订阅规模
func (t *MemoryTransport) Stats() messaging.TransportStats {
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
		QueueSize:    t.queueSize,
		QueueDepth:   len(t.queue),
		WorkerCount:  t.workerCount,
	}
}

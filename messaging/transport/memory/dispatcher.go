package memory

import (
	"context"

	"foodcart/logging"
	"foodcart/messaging"
)

// dispatch 把消息交给精确匹配与通配订阅的全部处理器。
// 异步分发下处理器错误无法回传发布方，只记日志后继续，
// 重试或死信由处理器自己实现。
func (t *MemoryTransport) dispatch(ctx context.Context, message messaging.IMessage) {
	messageType := message.GetType()

	t.mutex.RLock()
	exact := t.handlers[messageType]
	wildcard := t.handlers["*"]
	// 锁外调用处理器，先拷贝快照
	handlers := make([]messaging.IMessageHandler, 0, len(exact)+len(wildcard))
	handlers = append(handlers, exact...)
	handlers = append(handlers, wildcard...)
	t.mutex.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, message); err != nil {
			t.logger.Warn(ctx, "message handler failed",
				logging.String("message_type", messageType),
				logging.String("message_id", message.GetID()),
				logging.Error(err))
		}
	}
}

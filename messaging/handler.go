package messaging

import (
	"context"
)

// IMessageHandler 消息处理器，Type 用于日志定位
type IMessageHandler interface {
	Handle(ctx context.Context, message IMessage) error
	Type() string
}

// HandlerFunc 中间件链中的执行单元
type HandlerFunc func(ctx context.Context, message IMessage) error

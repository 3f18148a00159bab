// Package middleware 提供消息总线中间件
package middleware

import (
	"context"

	"foodcart/messaging"
)

// 链路字段名，Metadata 与 Context 共用
const (
	KeyCorrelationID = "correlation_id"
	KeyCausationID   = "causation_id"
	KeyTraceID       = "trace_id"
)

// TracingMiddleware 在消息元数据中注入并传播链路标识。
//
// 命令是链路起点：缺失的标识补为命令消息 ID，并写入 Context
// 供同一调用链里发布的事件继承。事件优先沿用 Context 中的标识，
// 脱离链路单独发布时退回自身消息 ID。
type TracingMiddleware struct{}

func NewTracingMiddleware() *TracingMiddleware { return &TracingMiddleware{} }

func (m *TracingMiddleware) Name() string { return "Tracing" }

func (m *TracingMiddleware) Handle(ctx context.Context, message messaging.IMessage, next messaging.HandlerFunc) error {
	if message == nil {
		return next(ctx, message)
	}
	md := message.GetMetadata()
	msgID := message.GetID()

	if message.GetType() == messaging.MessageTypeCommand {
		setIfMissing(md, KeyCorrelationID, msgID)
		setIfMissing(md, KeyCausationID, msgID)
		setIfMissing(md, KeyTraceID, msgID)

		ctx = context.WithValue(ctx, KeyCorrelationID, md[KeyCorrelationID])
		ctx = context.WithValue(ctx, KeyCausationID, md[KeyCausationID])
		ctx = context.WithValue(ctx, KeyTraceID, md[KeyTraceID])
		return next(ctx, message)
	}

	setIfMissing(md, KeyCorrelationID, fromContext(ctx, KeyCorrelationID), msgID)
	setIfMissing(md, KeyCausationID, fromContext(ctx, KeyCausationID), msgID)
	setIfMissing(md, KeyTraceID, fromContext(ctx, KeyTraceID), msgID)
	return next(ctx, message)
}

// setIfMissing 取第一个非空候选值补入缺失的元数据项
func setIfMissing(md map[string]interface{}, key string, candidates ...string) {
	if v, ok := md[key].(string); ok && v != "" {
		return
	}
	for _, candidate := range candidates {
		if candidate != "" {
			md[key] = candidate
			return
		}
	}
}

func fromContext(ctx context.Context, key string) string {
	v, _ := ctx.Value(key).(string)
	return v
}

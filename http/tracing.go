package http

import (
	"context"

	"github.com/google/uuid"
)

// CausationIDKey 因果链 context/metadata 键名
//
// correlation 相关键统一使用字符串字面量，保证HTTP层写入的链路信息
// 能被消息总线中间件按相同键名读取。
const CausationIDKey string = "causation_id"

// WithCorrelationID 在 context 中设置 correlation_id
//
// Correlation ID 标识整个业务流程，从 HTTP 请求开始，
// 贯穿所有命令和事件。
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// GetCorrelationID 从 context 中获取 correlation_id
//
// 如果不存在，返回空字符串。
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCausationID 在 context 中设置 causation_id
//
// Causation ID 标识直接的因果关系，例如触发命令的 HTTP 请求 ID、
// 触发事件的命令 ID。
func WithCausationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CausationIDKey, id)
}

// GetCausationID 从 context 中获取 causation_id
func GetCausationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(CausationIDKey).(string); ok {
		return id
	}
	return ""
}

// GenerateCorrelationID 生成新的 correlation ID
func GenerateCorrelationID() string {
	return "cor-" + uuid.Must(uuid.NewV7()).String()
}

// GenerateCausationID 生成新的 causation ID
func GenerateCausationID() string {
	return "cau-" + uuid.Must(uuid.NewV7()).String()
}

// InjectTraceContext 将追踪上下文注入到 metadata
//
// 从 context 中提取 correlation_id 和 causation_id，
// 注入到提供的 metadata map 中。
func InjectTraceContext(ctx context.Context, metadata map[string]interface{}) {
	if ctx == nil || metadata == nil {
		return
	}

	if correlationID := GetCorrelationID(ctx); correlationID != "" {
		metadata["correlation_id"] = correlationID
	}

	if causationID := GetCausationID(ctx); causationID != "" {
		metadata["causation_id"] = causationID
	}
}

// ExtractTraceContext 从 metadata 提取追踪上下文
//
// 从 metadata map 中提取 correlation_id 和 causation_id，
// 注入到返回的 context 中。
func ExtractTraceContext(ctx context.Context, metadata map[string]interface{}) context.Context {
	if ctx == nil || metadata == nil {
		return ctx
	}

	if correlationID, ok := metadata["correlation_id"].(string); ok && correlationID != "" {
		ctx = WithCorrelationID(ctx, correlationID)
	}

	if causationID, ok := metadata["causation_id"].(string); ok && causationID != "" {
		ctx = WithCausationID(ctx, causationID)
	}

	return ctx
}

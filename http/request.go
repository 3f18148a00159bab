// Package http 定义本服务使用的精简 HTTP 抽象层（httpx）
//
// 只保留购物车 API 实际依赖的能力：请求读取、JSON 绑定、响应写出、
// 请求级 context 与链路标识。实现见 http/basic。
package http

import (
	"context"
	"net/http"
)

// IRequestReader 请求读取接口
type IRequestReader interface {
	GetMethod() string
	GetPath() string
	GetHeader(key string) string
	GetQuery(key string) string
	GetParam(key string) string
	GetBody() ([]byte, error)
	GetRequest() *http.Request
}

// CorrelationIDKey 链路标识在请求 context 中的键名
//
// 与消息总线中间件使用同一字符串键，HTTP 层写入的链路标识
// 可被命令执行产生的事件直接继承。
const CorrelationIDKey string = "correlation_id"

// IRequestContext 请求上下文：标准 context 加链路标识访问
type IRequestContext interface {
	context.Context

	GetCorrelationID() string
	WithValue(key any, value any) IRequestContext
}

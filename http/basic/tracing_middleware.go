package basic

import (
	httpx "foodcart/http"
)

// CorrelationHeader 请求/响应中传递 correlation_id 的头名称
const CorrelationHeader = "X-Correlation-ID"

// CorrelationMiddleware 为每个请求建立链路标识
//
// 优先沿用请求头携带的 correlation_id；缺失时生成新值。
// 标识写入请求 context（供命令执行与事件发布沿用）并回写响应头，
// 便于调用方关联日志与事件。
func CorrelationMiddleware() httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		corr := ctx.GetHeader(CorrelationHeader)
		if corr == "" {
			corr = ctx.GetContext().GetCorrelationID()
		}
		if corr == "" {
			corr = httpx.GenerateCorrelationID()
		}
		ctx.SetContext(WithCorrelationID(ctx.GetContext(), corr))
		ctx.SetHeader(CorrelationHeader, corr)
		return next()
	}
}

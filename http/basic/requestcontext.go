package basic

import (
	"context"

	httpx "foodcart/http"
)

// RequestContext 内嵌标准 context，链路标识存于 context value
type RequestContext struct{ context.Context }

func NewRequestContext(ctx context.Context) httpx.IRequestContext {
	if ctx == nil {
		ctx = context.TODO()
	}
	return &RequestContext{Context: ctx}
}

func (r *RequestContext) GetCorrelationID() string {
	v, _ := r.Value(httpx.CorrelationIDKey).(string)
	return v
}

func (r *RequestContext) WithValue(key any, value any) httpx.IRequestContext {
	return &RequestContext{Context: context.WithValue(r.Context, key, value)}
}

// WithCorrelationID 写入链路标识
func WithCorrelationID(ctx httpx.IRequestContext, id string) httpx.IRequestContext {
	return ctx.WithValue(httpx.CorrelationIDKey, id)
}

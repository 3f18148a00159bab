package http

// IResponseWriter 响应写出接口
type IResponseWriter interface {
	SetStatus(code int)
	SetHeader(key, value string)
	JSON(code int, obj any) error
	String(code int, text string) error
}

// IContextStorage 请求内键值存储，供中间件与工具方法传递标记
type IContextStorage interface {
	Set(key string, value any)
	Get(key string) (any, bool)
}

// IHttpContext 处理器可见的完整请求上下文
type IHttpContext interface {
	IRequestReader
	IResponseWriter
	IContextStorage

	BindJSON(obj any) error

	GetContext() IRequestContext
	SetContext(ctx IRequestContext)
}

// HttpHandler 处理器函数类型
type HttpHandler func(ctx IHttpContext) error

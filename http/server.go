package http

import "context"

// IHttpServer HTTP 服务器接口
type IHttpServer interface {
	GET(path string, handler HttpHandler) IHttpServer
	POST(path string, handler HttpHandler) IHttpServer
	PUT(path string, handler HttpHandler) IHttpServer
	DELETE(path string, handler HttpHandler) IHttpServer

	Group(prefix string) IRouteGroup
	Use(middleware ...Middleware) IHttpServer

	Start(addr string) error
	Stop(ctx context.Context) error
}

// Middleware HTTP 中间件签名
type Middleware func(ctx IHttpContext, next func() error) error

// IRouteGroup 共享前缀与中间件的路由组
type IRouteGroup interface {
	GET(path string, handler HttpHandler) IRouteGroup
	POST(path string, handler HttpHandler) IRouteGroup
	PUT(path string, handler HttpHandler) IRouteGroup
	DELETE(path string, handler HttpHandler) IRouteGroup

	Group(prefix string) IRouteGroup
	Use(middleware ...Middleware) IRouteGroup
}

package basic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	httpx "foodcart/http"
)

// HttpServer 基于标准库 net/http 的 IHttpServer 实现
//
// 路由以「方法 + 模式」注册到 ServeMux（Go 1.22 语义），:param 风格的
// 模式在注册时转换为 {param}，分发时再经 PathValue 读回。
type HttpServer struct {
	mux         *http.ServeMux
	config      *httpx.WebConfig
	server      *http.Server
	routes      []*routeEntry
	middlewares []httpx.Middleware
	mu          sync.RWMutex
}

type routeEntry struct {
	method      string
	pattern     string
	handler     httpx.HttpHandler
	middlewares []httpx.Middleware
}

// NewHTTPServer 创建基于 net/http 的服务器
func NewHTTPServer(config *httpx.WebConfig) *HttpServer {
	return &HttpServer{
		mux:    http.NewServeMux(),
		config: config,
	}
}

func (s *HttpServer) GET(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.route(http.MethodGet, path, handler, nil)
}

func (s *HttpServer) POST(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.route(http.MethodPost, path, handler, nil)
}

func (s *HttpServer) PUT(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.route(http.MethodPut, path, handler, nil)
}

func (s *HttpServer) DELETE(path string, handler httpx.HttpHandler) httpx.IHttpServer {
	return s.route(http.MethodDelete, path, handler, nil)
}

func (s *HttpServer) route(method, path string, handler httpx.HttpHandler, mws []httpx.Middleware) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, &routeEntry{
		method:      method,
		pattern:     path,
		handler:     handler,
		middlewares: mws,
	})
	return s
}

// Group 创建共享前缀的路由组
func (s *HttpServer) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{prefix: prefix, server: s}
}

// Use 注册全局中间件
func (s *HttpServer) Use(middleware ...httpx.Middleware) httpx.IHttpServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, middleware...)
	return s
}

// Start 注册路由并阻塞监听；addr 为空时取配置中的 host:port
func (s *HttpServer) Start(addr string) error {
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	}
	s.mountRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Stop 优雅关闭，等待在途请求完成
func (s *HttpServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HttpServer) mountRoutes() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, entry := range s.routes {
		entry := entry
		s.mux.HandleFunc(entry.method+" "+muxPattern(entry.pattern),
			func(w http.ResponseWriter, req *http.Request) {
				s.serveRoute(entry, w, req)
			})
	}
}

// muxPattern 把 :param 段改写成 ServeMux 的 {param} 语法
func muxPattern(pattern string) string {
	parts := strings.Split(pattern, "/")
	for i, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			parts[i] = "{" + name + "}"
		}
	}
	return strings.Join(parts, "/")
}

func (s *HttpServer) serveRoute(entry *routeEntry, w http.ResponseWriter, req *http.Request) {
	ctx := NewBaseHttpContext(w, req)
	bindPathParams(ctx, entry.pattern, req)
	// 中间件链：全局在前，路由级在后
	chain := append([]httpx.Middleware{}, s.middlewares...)
	chain = append(chain, entry.middlewares...)
	if err := runChain(ctx, chain, entry.handler); err != nil {
		_ = (&HttpUtils{}).WriteErrorResponse(ctx, err)
	}
}

// bindPathParams 按注册模式里的 :param 段从请求中读回路径参数
func bindPathParams(ctx *HttpContext, pattern string, req *http.Request) {
	for _, part := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			if v := req.PathValue(name); v != "" {
				ctx.SetParam(name, v)
			}
		}
	}
}

// runChain 逆序折叠中间件，返回的闭包按注册顺序执行
func runChain(ctx httpx.IHttpContext, chain []httpx.Middleware, handler httpx.HttpHandler) error {
	next := func() error { return handler(ctx) }
	for i := len(chain) - 1; i >= 0; i-- {
		mw, inner := chain[i], next
		next = func() error { return mw(ctx, inner) }
	}
	return next()
}

// RouteGroup 实现 IRouteGroup
type RouteGroup struct {
	prefix      string
	server      *HttpServer
	middlewares []httpx.Middleware
}

func (g *RouteGroup) GET(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.route(http.MethodGet, path, h)
}

func (g *RouteGroup) POST(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.route(http.MethodPost, path, h)
}

func (g *RouteGroup) PUT(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.route(http.MethodPut, path, h)
}

func (g *RouteGroup) DELETE(path string, h httpx.HttpHandler) httpx.IRouteGroup {
	return g.route(http.MethodDelete, path, h)
}

func (g *RouteGroup) Group(prefix string) httpx.IRouteGroup {
	return &RouteGroup{
		prefix:      g.prefix + prefix,
		server:      g.server,
		middlewares: g.middlewares,
	}
}

func (g *RouteGroup) Use(mw ...httpx.Middleware) httpx.IRouteGroup {
	g.middlewares = append(g.middlewares, mw...)
	return g
}

func (g *RouteGroup) route(method, path string, h httpx.HttpHandler) httpx.IRouteGroup {
	g.server.route(method, g.prefix+path, h, append([]httpx.Middleware{}, g.middlewares...))
	return g
}

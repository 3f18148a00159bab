package basic

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpx "foodcart/http"
)

func serveOnce(srv *HttpServer, method, target string) *httptest.ResponseRecorder {
	srv.mountRoutes()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	return rec
}

// 全局中间件先于路由组中间件执行，处理器最后。
func TestHttpServer_MiddlewareOrder(t *testing.T) {
	srv := NewHTTPServer(&httpx.WebConfig{})

	var order []string
	srv.Use(func(ctx httpx.IHttpContext, next func() error) error {
		order = append(order, "global-before")
		err := next()
		order = append(order, "global-after")
		return err
	})

	group := srv.Group("/foodCart")
	group.Use(func(ctx httpx.IHttpContext, next func() error) error {
		order = append(order, "group-before")
		err := next()
		order = append(order, "group-after")
		return err
	})
	group.POST("/create", func(ctx httpx.IHttpContext) error {
		order = append(order, "handler")
		return ctx.JSON(http.StatusOK, map[string]string{"cart_id": "cart-1"})
	})

	rec := serveOnce(srv, http.MethodPost, "/foodCart/create")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"global-before", "group-before", "handler", "group-after", "global-after"}, order)
}

// :param 路径参数通过 PathValue 解析进 IHttpContext。
func TestHttpServer_PathParams(t *testing.T) {
	srv := NewHTTPServer(&httpx.WebConfig{})

	var cartID, productID string
	srv.POST("/foodCart/:cartID/select/:productID/quantity/:quantity", func(ctx httpx.IHttpContext) error {
		cartID = ctx.GetParam("cartID")
		productID = ctx.GetParam("productID")
		return ctx.JSON(http.StatusOK, nil)
	})

	rec := serveOnce(srv, http.MethodPost, "/foodCart/cart-42/select/deluxe-burger/quantity/3")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cart-42", cartID)
	assert.Equal(t, "deluxe-burger", productID)
}

// 路由按「方法 + 模式」注册，同一路径的不同方法互不冲突，
// 未注册的方法由 ServeMux 返回 405。
func TestHttpServer_MethodDispatch(t *testing.T) {
	srv := NewHTTPServer(&httpx.WebConfig{})

	srv.GET("/foodCart/:cartID", func(ctx httpx.IHttpContext) error {
		return ctx.JSON(http.StatusOK, map[string]string{"cart_id": ctx.GetParam("cartID")})
	})
	srv.POST("/foodCart/:cartID", func(ctx httpx.IHttpContext) error {
		return ctx.JSON(http.StatusAccepted, nil)
	})

	srv.mountRoutes()

	for _, tc := range []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodPost, http.StatusAccepted},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	} {
		req := httptest.NewRequest(tc.method, "/foodCart/cart-1", nil)
		rec := httptest.NewRecorder()
		srv.mux.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, tc.method)
	}
}

// 处理器返回的错误统一走 WriteErrorResponse 映射状态码。
func TestHttpServer_HandlerErrorMapped(t *testing.T) {
	srv := NewHTTPServer(&httpx.WebConfig{})

	srv.GET("/foodCart/:cartID", func(ctx httpx.IHttpContext) error {
		return plainError{}
	})

	rec := serveOnce(srv, http.MethodGet, "/foodCart/cart-del")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type plainError struct{}

func (plainError) Error() string { return "boom" }

package basic

import (
	"encoding/json"
	"io"
	"net/http"

	"foodcart/errors"
	httpx "foodcart/http"
)

// HttpContext net/http 之上的 IHttpContext 实现
//
// 路径参数由服务器在分发时通过 SetParam 注入；values 用于在中间件
// 与工具方法之间传递请求内标记（如响应是否已写出）。
type HttpContext struct {
	request *http.Request
	writer  http.ResponseWriter
	params  map[string]string
	reqCtx  httpx.IRequestContext
	status  int
	values  map[string]any
}

func NewBaseHttpContext(w http.ResponseWriter, r *http.Request) *HttpContext {
	return &HttpContext{
		request: r,
		writer:  w,
		params:  make(map[string]string),
		reqCtx:  NewRequestContext(r.Context()),
		status:  http.StatusOK,
		values:  make(map[string]any),
	}
}

func (c *HttpContext) GetMethod() string           { return c.request.Method }
func (c *HttpContext) GetPath() string             { return c.request.URL.Path }
func (c *HttpContext) GetQuery(key string) string  { return c.request.URL.Query().Get(key) }
func (c *HttpContext) GetParam(key string) string  { return c.params[key] }
func (c *HttpContext) GetHeader(key string) string { return c.request.Header.Get(key) }
func (c *HttpContext) GetRequest() *http.Request   { return c.request }

func (c *HttpContext) GetBody() ([]byte, error) {
	defer c.request.Body.Close()
	body, err := io.ReadAll(c.request.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrCodeInternal, "failed to read request body")
	}
	return body, nil
}

func (c *HttpContext) BindJSON(obj any) error {
	body, err := c.GetBody()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, obj); err != nil {
		return errors.WrapError(err, errors.ErrCodeInvalidInput, "failed to parse JSON")
	}
	return nil
}

func (c *HttpContext) SetStatus(code int)          { c.status = code }
func (c *HttpContext) SetHeader(key, value string) { c.writer.Header().Set(key, value) }

func (c *HttpContext) JSON(code int, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInternal, "failed to serialize JSON")
	}
	return c.write(code, "application/json", data)
}

func (c *HttpContext) String(code int, text string) error {
	return c.write(code, "text/plain", []byte(text))
}

func (c *HttpContext) write(code int, contentType string, data []byte) error {
	c.SetHeader("Content-Type", contentType)
	c.SetStatus(code)
	c.writer.WriteHeader(c.status)
	_, err := c.writer.Write(data)
	if err == nil {
		c.values[responseWrittenKey] = true
	}
	return err
}

func (c *HttpContext) GetContext() httpx.IRequestContext    { return c.reqCtx }
func (c *HttpContext) SetContext(ctx httpx.IRequestContext) { c.reqCtx = ctx }

func (c *HttpContext) Set(key string, value any)  { c.values[key] = value }
func (c *HttpContext) Get(key string) (any, bool) { v, ok := c.values[key]; return v, ok }

// SetParam 注入路径参数（服务器分发与测试使用）
func (c *HttpContext) SetParam(key, value string) { c.params[key] = value }

package http

import "time"

// ListRequest 分页与排序参数
type ListRequest struct {
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Sort     map[string]string `json:"sort"`
}

// NewListRequest 创建分页请求对象
func NewListRequest(page, pageSize int) *ListRequest {
	return &ListRequest{
		Page:     page,
		PageSize: pageSize,
		Sort:     make(map[string]string),
	}
}

// SetSort 设置排序字段
func (r *ListRequest) SetSort(field, direction string) {
	if r.Sort == nil {
		r.Sort = make(map[string]string)
	}
	r.Sort[field] = direction
}

// ErrorPayload 统一错误响应体
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code, message, details string) *ErrorPayload {
	return &ErrorPayload{Code: code, Message: message, Details: details}
}

// SuccessPayload 统一成功响应体
type SuccessPayload struct {
	Data any `json:"data"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data any) *SuccessPayload {
	return &SuccessPayload{Data: data}
}

// WebConfig HTTP 服务配置
type WebConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

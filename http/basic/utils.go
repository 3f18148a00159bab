package basic

import (
	"fmt"
	"net/http"
	"strconv"

	"foodcart/errors"
	httpx "foodcart/http"
)

// responseWrittenKey 标记响应已写出，避免同一请求链路重复写入
const responseWrittenKey = "response_written"

type HttpUtils struct{}

// ParsePagination 解析 page/page_size/sort_by/sort_dir 查询参数
func (u *HttpUtils) ParsePagination(ctx httpx.IHttpContext) (*httpx.ListRequest, error) {
	pageStr := ctx.GetQuery("page")
	if pageStr == "" {
		pageStr = "1"
	}
	pageSizeStr := ctx.GetQuery("page_size")
	if pageSizeStr == "" {
		pageSizeStr = "20"
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page <= 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidInput, "page number must be a positive integer")
	}
	pageSize, err := strconv.Atoi(pageSizeStr)
	if err != nil || pageSize <= 0 || pageSize > 1000 {
		return nil, errors.NewError(errors.ErrCodeInvalidInput, "page size must be between 1 and 1000")
	}
	req := httpx.NewListRequest(page, pageSize)
	if sortBy := ctx.GetQuery("sort_by"); sortBy != "" {
		sortDir := ctx.GetQuery("sort_dir")
		if sortDir == "" {
			sortDir = "asc"
		} else if sortDir != "asc" && sortDir != "desc" {
			return nil, errors.NewError(errors.ErrCodeInvalidInput, "sort_dir must be 'asc' or 'desc'")
		}
		req.SetSort(sortBy, sortDir)
	}
	return req, nil
}

// WriteErrorResponse 归一化错误并按错误码写出对应状态的 JSON 响应
func (u *HttpUtils) WriteErrorResponse(ctx httpx.IHttpContext, err error) error {
	if v, ok := ctx.Get(responseWrittenKey); ok {
		if written, _ := v.(bool); written {
			return nil
		}
	}

	err = errors.Normalize(err)

	var (
		status    int
		message   string
		errorCode string
	)
	if appErr, ok := err.(errors.IError); ok {
		status = statusOf(appErr.Code())
		message = appErr.Message()
		errorCode = string(appErr.Code())
	} else {
		status = http.StatusInternalServerError
		message = err.Error()
		errorCode = string(errors.ErrCodeInternal)
	}
	if jerr := ctx.JSON(status, httpx.NewErrorResponse(errorCode, message, "")); jerr != nil {
		_ = ctx.String(http.StatusInternalServerError, fmt.Sprintf("%s: %s", errorCode, message))
	}
	ctx.Set(responseWrittenKey, true)
	return nil
}

// 错误码到 HTTP 状态码的映射；冲突类（资源冲突/乐观锁/重复写入）统一 409
func statusOf(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeConflict, errors.ErrCodeConcurrency, errors.ErrCodeDuplicate:
		return http.StatusConflict
	case errors.ErrCodeTimeout:
		return http.StatusRequestTimeout
	case errors.ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case errors.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteSuccessResponse 写出统一成功响应体
func (u *HttpUtils) WriteSuccessResponse(ctx httpx.IHttpContext, data any) error {
	if jerr := ctx.JSON(http.StatusOK, httpx.NewSuccessResponse(data)); jerr != nil {
		_ = ctx.String(http.StatusOK, "success")
	}
	return nil
}

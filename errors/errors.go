// Package errors 提供带错误码的应用错误类型
//
// 错误码是服务边界的稳定契约：HTTP 层据此映射状态码，
// 消息消费者据此决定重试还是丢弃。领域层照常返回哨兵错误或
// 自定义错误类型，由 Normalize 在边界处统一归一化。
package errors

import (
	stdErrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorCode 错误代码类型
type ErrorCode string

const (
	// 通用错误代码
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeTooManyRequests    ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// 业务错误代码
	ErrCodeValidation  ErrorCode = "VALIDATION_ERROR"
	ErrCodeDuplicate   ErrorCode = "DUPLICATE_ERROR"
	ErrCodeDependency  ErrorCode = "DEPENDENCY_ERROR"
	ErrCodeConcurrency ErrorCode = "CONCURRENCY_ERROR"
)

// IError 带错误码的应用错误
type IError interface {
	error

	// Code 返回错误代码
	Code() ErrorCode

	// Message 返回面向调用方的错误消息
	Message() string

	// Cause 返回被包装的原始错误
	Cause() error

	// Details 返回附加的上下文键值
	Details() map[string]any

	// WithContext 追加一条上下文键值，返回新错误
	WithContext(key string, value any) IError
}

// AppError IError 的默认实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
	stack   string
}

// NewError 创建错误
func NewError(code ErrorCode, message string) IError {
	return &AppError{
		code:    code,
		message: message,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

// WrapError 包装已有错误并附加错误码
//
// err 为 nil 时返回 nil，调用方无需前置判空。
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return &AppError{
		code:    code,
		message: message,
		cause:   err,
		details: make(map[string]any),
		stack:   captureStack(),
	}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *AppError) Code() ErrorCode {
	return e.code
}

func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Cause() error {
	return e.cause
}

func (e *AppError) Details() map[string]any {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	return e.details
}

// Stack 返回创建时捕获的调用栈
func (e *AppError) Stack() string {
	return e.stack
}

// Is 同码的 AppError 视为同一错误，否则透传给被包装错误
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}
	if appErr, ok := target.(*AppError); ok {
		return e.code == appErr.code
	}
	if e.cause != nil {
		return stdErrors.Is(e.cause, target)
	}
	return false
}

// Unwrap 支持 errors.Is / errors.As 链式匹配
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithContext 追加上下文键值，原错误不变
func (e *AppError) WithContext(key string, value any) IError {
	details := make(map[string]any, len(e.details)+1)
	for k, v := range e.details {
		details[k] = v
	}
	details[key] = value

	return &AppError{
		code:    e.code,
		message: e.message,
		cause:   e.cause,
		details: details,
		stack:   e.stack,
	}
}

// 常用预定义错误
var (
	ErrInternal     = NewError(ErrCodeInternal, "内部服务器错误")
	ErrInvalidInput = NewError(ErrCodeInvalidInput, "无效的输入参数")
	ErrNotFound     = NewError(ErrCodeNotFound, "资源未找到")
	ErrConflict     = NewError(ErrCodeConflict, "资源冲突")
)

// IsNotFound 检查是否为未找到错误
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrCodeNotFound)
}

// IsErrorCode 检查错误链中是否存在指定错误码
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code == code
	}
	return false
}

// GetErrorCode 取错误链中的错误码，未归一化的错误按内部错误处理
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}
	return ErrCodeInternal
}

func captureStack() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}

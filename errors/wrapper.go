package errors

import (
	"context"
	"fmt"
	"runtime"

	"foodcart/logging"
)

// New 创建带调用位置的错误
//
// 消息中附上 file:line，便于从日志直接定位抛错处；
// 适合校验失败这类不需要包装底层错误的场景。
func New(code ErrorCode, msg string) error {
	_, file, line, _ := runtime.Caller(1)
	return NewError(code, fmt.Sprintf("%s (位置: %s:%d)", msg, file, line))
}

// WrapWithLog 包装错误并同时记录警告日志
//
// 用在错误即将被吞掉语境信息的边界（如异步发布失败），
// 保证日志里留有完整的原始错误和发生位置。
func WrapWithLog(ctx context.Context, err error, code ErrorCode, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}

	_, file, line, _ := runtime.Caller(1)

	allFields := append([]logging.Field{
		logging.Error(err),
		logging.String("error_code", string(code)),
		logging.String("location", fmt.Sprintf("%s:%d", file, line)),
	}, fields...)
	logging.GetLogger().Warn(ctx, msg, allFields...)

	return WrapError(err, code, msg)
}

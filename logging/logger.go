// Package logging 提供 ctx 优先的结构化日志抽象，默认实现基于 log/slog
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger 日志接口
//
// 所有方法以 context 开头，实现可从中提取链路标识等请求级信息。
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// WithFields 派生携带固定字段的新 Logger
	WithFields(fields ...Field) Logger
}

// Field 结构化日志字段
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Uint64(key string, value uint64) Field   { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }
func Error(err error) Field                   { return Field{Key: "error", Value: err} }
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// correlationIDKey 与 HTTP 层及消息中间件共用的链路标识键
const correlationIDKey = "correlation_id"

// SlogLogger 基于标准库 log/slog 的实现
type SlogLogger struct {
	inner  *slog.Logger
	fields []Field
}

// NewSlogLogger 以指定 handler 创建 Logger；handler 为 nil 时输出文本到 stderr
func NewSlogLogger(handler slog.Handler) *SlogLogger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	return &SlogLogger{inner: slog.New(handler)}
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, msg string, fields []Field) {
	attrs := make([]any, 0, 2*(len(l.fields)+len(fields)+1))
	for _, f := range l.fields {
		attrs = append(attrs, f.Key, f.Value)
	}
	for _, f := range fields {
		attrs = append(attrs, f.Key, f.Value)
	}
	// 请求链路标识随 ctx 传播，存在时自动附带
	if ctx != nil {
		if corr, ok := ctx.Value(correlationIDKey).(string); ok && corr != "" {
			attrs = append(attrs, correlationIDKey, corr)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	l.inner.Log(ctx, level, msg, attrs...)
}

func (l *SlogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *SlogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *SlogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *SlogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *SlogLogger) WithFields(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &SlogLogger{inner: l.inner, fields: merged}
}

// NoopLogger 丢弃全部输出（测试与默认占位用）
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (l *NoopLogger) Debug(ctx context.Context, msg string, fields ...Field) {}
func (l *NoopLogger) Info(ctx context.Context, msg string, fields ...Field)  {}
func (l *NoopLogger) Warn(ctx context.Context, msg string, fields ...Field)  {}
func (l *NoopLogger) Error(ctx context.Context, msg string, fields ...Field) {}
func (l *NoopLogger) WithFields(fields ...Field) Logger                      { return l }

var globalLogger Logger = NewSlogLogger(nil)

// SetLogger 设置全局 Logger
func SetLogger(logger Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// GetLogger 获取全局 Logger
func GetLogger() Logger {
	return globalLogger
}

// ComponentLogger 派生带 component 字段的 Logger
func ComponentLogger(component string) Logger {
	return GetLogger().WithFields(String("component", component))
}

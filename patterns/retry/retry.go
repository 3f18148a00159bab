// Package retry 提供带指数退避的重试执行
//
// 主要服务于乐观并发冲突的命令重试：冲突后重新加载聚合再执行一次，
// 退避间隔按 BackoffFactor 逐次放大，封顶 MaxDelay。
package retry

import (
	"context"
	"time"
)

// Operation 可重试的操作函数类型
type Operation func(ctx context.Context) error

// Config 重试配置
type Config struct {
	// MaxAttempts 最大尝试次数，包含首次执行
	MaxAttempts int

	// InitialDelay 首次重试前的退避时长
	InitialDelay time.Duration

	// BackoffFactor 每次重试后退避时长的放大倍数
	BackoffFactor float64

	// MaxDelay 退避时长上限
	MaxDelay time.Duration
}

// DefaultConfig 返回命令冲突重试的默认配置
//
// 首次执行加一次重试，2ms 起步、倍增、封顶 1s。
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   2,
		InitialDelay:  2 * time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      1 * time.Second,
	}
}

// Do 按配置重复执行 op，直到成功、尝试耗尽或上下文取消
//
// 任意一次成功返回 nil；全部失败返回最后一次的错误；
// 上下文取消时立即返回 ctx.Err()，不再继续尝试。
func Do(ctx context.Context, op Operation, cfg Config) error {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = op(ctx); lastErr == nil {
			return nil
		}

		// 最后一次失败后不再等待
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}

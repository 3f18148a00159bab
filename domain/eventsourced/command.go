package eventsourced

import (
	"context"
	"time"

	"foodcart/logging"
	"foodcart/patterns/retry"
)

// IEventSourcedCommand 事件溯源命令
//
// AggregateID 定位目标聚合，string 类型兼容 UUID 与业务编号。
type IEventSourcedCommand interface {
	AggregateID() string
}

// EventSourcedCommandHandler 命令处理器
//
// 在已加载的聚合上执行业务逻辑并产生事件，持久化由服务模板负责。
type EventSourcedCommandHandler[T IEventSourcedAggregate[string]] func(ctx context.Context, cmd IEventSourcedCommand, aggregate T) error

// EventSourcedServiceOptions 命令服务配置
type EventSourcedServiceOptions[T IEventSourcedAggregate[string]] struct {
	Logger        logging.Logger
	CommandHooks  []EventSourcedCommandHook[T]
	CommandTracer ICommandTracer

	// ConflictRetry 乐观锁冲突重试策略，nil 使用 retry.DefaultConfig()
	ConflictRetry *retry.Config
}

// EventSourcedCommandHook 命令执行前后的横切钩子，用于审计或校验
type EventSourcedCommandHook[T IEventSourcedAggregate[string]] interface {
	BeforeExecute(ctx context.Context, cmd IEventSourcedCommand, agg T) error
	AfterExecute(ctx context.Context, cmd IEventSourcedCommand, agg T, execErr error) error
}

// ICommandTracer 记录命令执行耗时与结果
type ICommandTracer interface {
	Trace(ctx context.Context, commandName string, elapsed time.Duration, err error)
}

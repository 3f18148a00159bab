package eventsourced

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"foodcart/eventing"
	"foodcart/logging"
	"foodcart/patterns/retry"
)

// EventSourcedService 统一的命令执行模板
//
// 命令执行流程：加载聚合 → 执行钩子 → 执行处理器 → 保存未提交事件。
// 保存时发生乐观锁冲突会重新加载聚合并按重试策略自动重试，
// 业务错误不会触发重试。
type EventSourcedService[T IEventSourcedAggregate[string]] struct {
	repository    IEventSourcedRepository[T, string]
	handlers      map[reflect.Type]EventSourcedCommandHandler[T]
	logger        logging.Logger
	hooks         []EventSourcedCommandHook[T]
	tracer        ICommandTracer
	conflictRetry retry.Config
}

// NewEventSourcedService 创建事件溯源服务模板
func NewEventSourcedService[T IEventSourcedAggregate[string]](
	repository IEventSourcedRepository[T, string],
	opts *EventSourcedServiceOptions[T],
) (*EventSourcedService[T], error) {
	if repository == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	service := &EventSourcedService[T]{
		repository:    repository,
		handlers:      make(map[reflect.Type]EventSourcedCommandHandler[T]),
		conflictRetry: retry.DefaultConfig(),
	}
	if opts != nil {
		service.hooks = opts.CommandHooks
		service.tracer = opts.CommandTracer
		service.logger = opts.Logger
		if opts.ConflictRetry != nil {
			service.conflictRetry = *opts.ConflictRetry
		}
	}
	if service.logger == nil {
		service.logger = logging.ComponentLogger("eventsourced.service")
	}
	return service, nil
}

// RegisterCommandHandler 注册命令处理器
func (s *EventSourcedService[T]) RegisterCommandHandler(prototype IEventSourcedCommand, handler EventSourcedCommandHandler[T]) error {
	if prototype == nil {
		return fmt.Errorf("command prototype cannot be nil")
	}
	if handler == nil {
		return fmt.Errorf("command handler cannot be nil")
	}
	cmdType := reflect.TypeOf(prototype)
	if cmdType.Kind() != reflect.Ptr {
		return fmt.Errorf("command prototype must be pointer type, got %s", cmdType.String())
	}
	s.handlers[cmdType] = handler
	return nil
}

// ExecuteCommand 执行命令
//
// 乐观锁冲突（并发写同一聚合）时自动重试：每次重试重新加载聚合，
// 在最新状态上重放命令。其他错误直接返回。
func (s *EventSourcedService[T]) ExecuteCommand(ctx context.Context, cmd IEventSourcedCommand) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}
	cmdType := reflect.TypeOf(cmd)
	handler, exists := s.handlers[cmdType]
	if !exists {
		return fmt.Errorf("command handler not found for type %s", cmdType.String())
	}

	aggregateID := cmd.AggregateID()
	if aggregateID == "" {
		return fmt.Errorf("aggregate id cannot be empty")
	}

	start := time.Now()

	var permanentErr error
	retryErr := retry.Do(ctx, func(ctx context.Context) error {
		execErr := s.executeOnce(ctx, cmd, cmdType, handler, aggregateID)
		if execErr == nil {
			return nil
		}

		var conflict *eventing.ConcurrencyError
		if errors.As(execErr, &conflict) {
			s.logger.Warn(ctx, "optimistic lock conflict, retrying command",
				logging.String("command", cmdType.String()),
				logging.String("aggregate_id", aggregateID))
			return execErr
		}

		// 非冲突错误不重试，记录后终止重试循环
		permanentErr = execErr
		return nil
	}, s.conflictRetry)

	finalErr := permanentErr
	if finalErr == nil {
		finalErr = retryErr
	}

	s.trace(ctx, cmdType.String(), time.Since(start), finalErr)
	return finalErr
}

func (s *EventSourcedService[T]) executeOnce(
	ctx context.Context,
	cmd IEventSourcedCommand,
	cmdType reflect.Type,
	handler EventSourcedCommandHandler[T],
	aggregateID string,
) error {
	aggregate, err := s.repository.GetByID(ctx, aggregateID)
	if err != nil {
		return fmt.Errorf("load aggregate failed: %w", err)
	}

	for _, hook := range s.hooks {
		if err := hook.BeforeExecute(ctx, cmd, aggregate); err != nil {
			return fmt.Errorf("before execute hook failed: %w", err)
		}
	}

	execErr := handler(ctx, cmd, aggregate)

	for _, hook := range s.hooks {
		if hookErr := hook.AfterExecute(ctx, cmd, aggregate, execErr); hookErr != nil {
			s.logger.Warn(ctx, "after execute hook failed",
				logging.Error(hookErr),
				logging.String("command", cmdType.String()))
		}
	}

	if execErr != nil {
		return execErr
	}

	return s.repository.Save(ctx, aggregate)
}

func (s *EventSourcedService[T]) trace(ctx context.Context, commandName string, elapsed time.Duration, execErr error) {
	if s.tracer != nil {
		s.tracer.Trace(ctx, commandName, elapsed, execErr)
	}
}

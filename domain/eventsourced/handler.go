package eventsourced

import (
	"context"
	"fmt"
	"time"

	"foodcart/eventing"
	"foodcart/eventing/bus"
	"foodcart/logging"
	"foodcart/messaging"
	"foodcart/patterns/retry"
)

var _ bus.IEventHandler = (*TypedEventHandler[any])(nil)

// RetryPolicy 事件处理的就地重试策略
//
// 固定间隔短重试，仍失败的事件交由上游（总线重投递或死信）处理。
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// retryConfig 转换为 patterns/retry 的配置，MaxRetries 不含首次执行
func (p RetryPolicy) retryConfig() retry.Config {
	attempts := p.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  backoff,
		BackoffFactor: 1.0,
		MaxDelay:      backoff,
	}
}

// TypedEventHandlerOption 配置类型化事件处理器
type TypedEventHandlerOption[T any] struct {
	// Name 处理器名称，缺省从事件类型生成
	Name string

	// EventType 订阅的事件类型
	EventType string

	// Decoder 从事件信封提取载荷，缺省按 T 做类型断言
	Decoder func(event eventing.Event) (T, error)

	// Handle 业务回调
	Handle func(ctx context.Context, payload T) error

	RetryPolicy RetryPolicy
	Logger      logging.Logger
}

// TypedEventHandler 将强类型回调适配为总线事件处理器
//
// 订阅方只写 func(ctx, *cart.OrderConfirmed) error 这样的回调，
// 信封解包、类型断言和重试由本类型统一处理。
type TypedEventHandler[T any] struct {
	name      string
	eventType string
	decoder   func(event eventing.Event) (T, error)
	handle    func(ctx context.Context, payload T) error
	retry     retry.Config
	logger    logging.Logger
}

// NewTypedEventHandler 创建类型化事件处理器
func NewTypedEventHandler[T any](opt TypedEventHandlerOption[T]) (*TypedEventHandler[T], error) {
	if opt.EventType == "" {
		return nil, fmt.Errorf("event type cannot be empty")
	}
	if opt.Handle == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	h := &TypedEventHandler[T]{
		name:      opt.Name,
		eventType: opt.EventType,
		decoder:   opt.Decoder,
		handle:    opt.Handle,
		retry:     opt.RetryPolicy.retryConfig(),
		logger:    opt.Logger,
	}
	if h.decoder == nil {
		h.decoder = assertPayload[T]
	}
	if h.name == "" {
		h.name = fmt.Sprintf("TypedEventHandler<%s>", opt.EventType)
	}
	if h.logger == nil {
		h.logger = logging.ComponentLogger("eventsourced.handler").
			WithFields(logging.String("handler", h.name))
	}
	return h, nil
}

// assertPayload 缺省解码器，载荷直接断言为 T
func assertPayload[T any](evt eventing.Event) (T, error) {
	payload, ok := evt.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("payload type mismatch: %T", evt.Payload)
	}
	return payload, nil
}

// Handle 实现消息总线处理器接口
func (h *TypedEventHandler[T]) Handle(ctx context.Context, message messaging.IMessage) error {
	evt, ok := message.(eventing.IEvent)
	if !ok {
		return fmt.Errorf("message is not an event: %T", message)
	}
	return h.HandleEvent(ctx, evt)
}

// HandleEvent 解包并处理事件，按策略就地重试
func (h *TypedEventHandler[T]) HandleEvent(ctx context.Context, evt eventing.IEvent) error {
	envelope, ok := evt.(*eventing.Event)
	if !ok {
		return fmt.Errorf("event payload must be *eventing.Event, got %T", evt)
	}

	payload, err := h.decoder(*envelope)
	if err != nil {
		return fmt.Errorf("decode event payload failed: %w", err)
	}

	err = retry.Do(ctx, func(ctx context.Context) error {
		return h.handle(ctx, payload)
	}, h.retry)
	if err != nil {
		h.logger.Warn(ctx, "event handler failed",
			logging.Error(err),
			logging.String("event_type", h.eventType),
			logging.String("event_id", envelope.ID),
			logging.Int("attempts", h.retry.MaxAttempts))
	}
	return err
}

// GetEventTypes 订阅的事件类型
func (h *TypedEventHandler[T]) GetEventTypes() []string {
	return []string{h.eventType}
}

// GetHandlerName 处理器名称
func (h *TypedEventHandler[T]) GetHandlerName() string {
	return h.name
}

// Type 实现消息接口
func (h *TypedEventHandler[T]) Type() string {
	return h.eventType
}

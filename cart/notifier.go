package cart

import (
	"context"

	deventsourced "foodcart/domain/eventsourced"
	"foodcart/eventing/bus"
	"foodcart/logging"
)

// NewOrderConfirmedNotifier 创建订单确认通知处理器
//
// 订阅 OrderConfirmed 事件并记录结构化日志，下游对接
// 出餐/打印小票等动作时替换 Handle 回调即可。
func NewOrderConfirmedNotifier(logger logging.Logger) (bus.IEventHandler, error) {
	if logger == nil {
		logger = logging.ComponentLogger("cart.notifier")
	}
	return deventsourced.NewTypedEventHandler(deventsourced.TypedEventHandlerOption[*OrderConfirmed]{
		Name:      "OrderConfirmedNotifier",
		EventType: EventTypeOrderConfirmed,
		Logger:    logger,
		Handle: func(ctx context.Context, evt *OrderConfirmed) error {
			logger.Info(ctx, "order confirmed",
				logging.String("cart_id", evt.CartID),
			)
			return nil
		},
	})
}

package cart

import (
	"context"
	"fmt"
	"sync"

	"foodcart/domain"
	deventsourced "foodcart/domain/eventsourced"
	"foodcart/logging"
	"foodcart/patterns/retry"
)

// FoodCartServiceOptions 购物车命令服务配置
type FoodCartServiceOptions struct {
	Logger logging.Logger
	// ConflictRetry 乐观锁冲突重试策略，nil 使用默认策略
	ConflictRetry *retry.Config
}

// FoodCartService 购物车命令调度服务
//
// 在通用命令执行模板之上增加按聚合 ID 的互斥：同一购物车的命令严格串行，
// 不同购物车的命令完全并行。串行化关闭了“读-改-追加”竞态的常规路径，
// 乐观锁与重试兜底处理跨进程写入者。
type FoodCartService struct {
	service    *deventsourced.EventSourcedService[*FoodCart]
	repository *deventsourced.EventSourcedRepository[*FoodCart]
	logger     logging.Logger
	locks      sync.Map // cartID → *sync.Mutex
}

// NewFoodCartService 创建购物车命令服务并注册全部命令处理器
func NewFoodCartService(
	repository *deventsourced.EventSourcedRepository[*FoodCart],
	opts *FoodCartServiceOptions,
) (*FoodCartService, error) {
	var logger logging.Logger
	var conflictRetry *retry.Config
	if opts != nil {
		logger = opts.Logger
		conflictRetry = opts.ConflictRetry
	}
	if logger == nil {
		logger = logging.ComponentLogger("cart.service")
	}

	inner, err := deventsourced.NewEventSourcedService[*FoodCart](repository, &deventsourced.EventSourcedServiceOptions[*FoodCart]{
		Logger:        logger,
		ConflictRetry: conflictRetry,
	})
	if err != nil {
		return nil, err
	}

	s := &FoodCartService{
		service:    inner,
		repository: repository,
		logger:     logger,
	}

	if err := inner.RegisterCommandHandler(&CreateFoodCart{}, s.handleCreate); err != nil {
		return nil, err
	}
	if err := inner.RegisterCommandHandler(&SelectProduct{}, s.handleSelect); err != nil {
		return nil, err
	}
	if err := inner.RegisterCommandHandler(&DeselectProduct{}, s.handleDeselect); err != nil {
		return nil, err
	}
	if err := inner.RegisterCommandHandler(&ConfirmOrder{}, s.handleConfirm); err != nil {
		return nil, err
	}
	return s, nil
}

// ExecuteCommand 执行购物车命令
//
// 同一购物车 ID 的命令串行执行，命令产生的事件批次在历史中相邻且版本连续。
func (s *FoodCartService) ExecuteCommand(ctx context.Context, cmd deventsourced.IEventSourcedCommand) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}
	mu := s.lockFor(cmd.AggregateID())
	mu.Lock()
	defer mu.Unlock()
	return s.service.ExecuteCommand(ctx, cmd)
}

// Repository 返回底层仓储（查询事件历史等辅助场景）
func (s *FoodCartService) Repository() *deventsourced.EventSourcedRepository[*FoodCart] {
	return s.repository
}

func (s *FoodCartService) lockFor(cartID string) *sync.Mutex {
	if mu, ok := s.locks.Load(cartID); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := s.locks.LoadOrStore(cartID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *FoodCartService) handleCreate(ctx context.Context, cmd deventsourced.IEventSourcedCommand, agg *FoodCart) error {
	return agg.Create()
}

func (s *FoodCartService) handleSelect(ctx context.Context, cmd deventsourced.IEventSourcedCommand, agg *FoodCart) error {
	c, ok := cmd.(*SelectProduct)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}
	if err := s.requireCreated(agg); err != nil {
		return err
	}
	return agg.Select(c.ProductID, c.Quantity)
}

func (s *FoodCartService) handleDeselect(ctx context.Context, cmd deventsourced.IEventSourcedCommand, agg *FoodCart) error {
	c, ok := cmd.(*DeselectProduct)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}
	if err := s.requireCreated(agg); err != nil {
		return err
	}
	return agg.Deselect(c.ProductID, c.Quantity)
}

func (s *FoodCartService) handleConfirm(ctx context.Context, cmd deventsourced.IEventSourcedCommand, agg *FoodCart) error {
	if err := s.requireCreated(agg); err != nil {
		return err
	}
	applied, err := agg.Confirm()
	if err != nil {
		return err
	}
	if !applied {
		// 幂等确认：静默吸收，仅留告警日志
		s.logger.Warn(ctx, "cannot confirm a food cart order which is already confirmed",
			logging.String("cart_id", agg.GetID()))
	}
	return nil
}

func (s *FoodCartService) requireCreated(agg *FoodCart) error {
	if agg.GetVersion() == 0 {
		return fmt.Errorf("food cart %s: %w", agg.GetID(), domain.ErrEntityNotFound)
	}
	return nil
}

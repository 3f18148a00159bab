package projection

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodcart/eventing"
	"foodcart/eventing/bus"
	"foodcart/eventing/store"
	"foodcart/messaging"
)

// stubProjection 可编程的测试投影
type stubProjection struct {
	name            string
	supportedTypes  []string
	handleFunc      func(ctx context.Context, event eventing.IEvent) error
	rebuildFunc     func(ctx context.Context, events []eventing.Event) error
	processedEvents int
	failedEvents    int
	mu              sync.Mutex
}

func newStubProjection(name string, types []string) *stubProjection {
	return &stubProjection{name: name, supportedTypes: types}
}

func (p *stubProjection) GetName() string {
	return p.name
}

func (p *stubProjection) Handle(ctx context.Context, event eventing.IEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handleFunc != nil {
		if err := p.handleFunc(ctx, event); err != nil {
			p.failedEvents++
			return err
		}
	}
	p.processedEvents++
	return nil
}

func (p *stubProjection) GetSupportedEventTypes() []string {
	return p.supportedTypes
}

func (p *stubProjection) Rebuild(ctx context.Context, events []eventing.Event) error {
	if p.rebuildFunc != nil {
		return p.rebuildFunc(ctx, events)
	}
	return nil
}

func (p *stubProjection) GetStatus() ProjectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProjectionStatus{
		Name:            p.name,
		ProcessedEvents: int64(p.processedEvents),
		FailedEvents:    int64(p.failedEvents),
	}
}

func (p *stubProjection) handled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processedEvents
}

// stubEventBus 记录订阅与发布，可注入订阅失败
type stubEventBus struct {
	publishedEvents []eventing.IEvent
	subscriptions   map[string][]bus.IEventHandler
	subscribeErrOn  string // 订阅该事件类型时返回错误
	unsubscribed    []string
	mu              sync.Mutex
}

func (m *stubEventBus) PublishEvent(ctx context.Context, event eventing.IEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

func (m *stubEventBus) PublishEvents(ctx context.Context, events []eventing.IEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishedEvents = append(m.publishedEvents, events...)
	return nil
}

func (m *stubEventBus) PublishAll(ctx context.Context, messages []messaging.IMessage) error {
	for _, msg := range messages {
		if evt, ok := msg.(eventing.IEvent); ok {
			if err := m.PublishEvent(ctx, evt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *stubEventBus) SubscribeEvent(ctx context.Context, eventType string, handler bus.IEventHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eventType == m.subscribeErrOn {
		return fmt.Errorf("subscribe rejected for %s", eventType)
	}
	if m.subscriptions == nil {
		m.subscriptions = make(map[string][]bus.IEventHandler)
	}
	m.subscriptions[eventType] = append(m.subscriptions[eventType], handler)
	return nil
}

func (m *stubEventBus) UnsubscribeEvent(ctx context.Context, eventType string, handler bus.IEventHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsubscribed = append(m.unsubscribed, eventType)
	return nil
}

func (m *stubEventBus) SubscribeHandler(ctx context.Context, handler bus.IEventHandler) error {
	return nil
}

func (m *stubEventBus) UnsubscribeHandler(ctx context.Context, handler bus.IEventHandler) error {
	return nil
}

func (m *stubEventBus) Publish(ctx context.Context, message messaging.IMessage) error {
	return nil
}

func (m *stubEventBus) Subscribe(ctx context.Context, topic string, handler messaging.IMessageHandler) error {
	return nil
}

func (m *stubEventBus) Unsubscribe(ctx context.Context, topic string, handler messaging.IMessageHandler) error {
	return nil
}

func (m *stubEventBus) Use(middleware messaging.IMiddleware) {}

func newCartViewManager() (*ProjectionManager, *store.MemoryEventStore, *stubEventBus) {
	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{}
	return NewProjectionManager(eventStore, eventBus), eventStore, eventBus
}

// asStorableEvents 将事件切片转换为存储接口切片
func asStorableEvents(events []eventing.Event) []eventing.IStorableEvent {
	storable := make([]eventing.IStorableEvent, len(events))
	for i := range events {
		storable[i] = &events[i]
	}
	return storable
}

func TestNewProjectionManager(t *testing.T) {
	manager, _, _ := newCartViewManager()

	assert.NotNil(t, manager)
	assert.NotNil(t, manager.projections)
	assert.NotNil(t, manager.config)
}

func TestProjectionManager_RegisterProjection(t *testing.T) {
	manager, _, eventBus := newCartViewManager()

	proj := newStubProjection("cart-summary", []string{"ProductSelected", "OrderConfirmed"})
	require.NoError(t, manager.RegisterProjection(proj))

	assert.Contains(t, manager.projections, "cart-summary")
	// 每个事件类型都应完成订阅
	assert.Len(t, eventBus.subscriptions["ProductSelected"], 1)
	assert.Len(t, eventBus.subscriptions["OrderConfirmed"], 1)

	// 注册后初始状态为 stopped
	status, err := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, err)
	assert.Equal(t, "stopped", status.Status)
}

func TestProjectionManager_RegisterNilProjection(t *testing.T) {
	manager, _, _ := newCartViewManager()

	assert.Error(t, manager.RegisterProjection(nil))
}

func TestProjectionManager_RegisterDuplicateName(t *testing.T) {
	manager, _, _ := newCartViewManager()

	require.NoError(t, manager.RegisterProjection(newStubProjection("cart-summary", []string{"ProductSelected"})))

	err := manager.RegisterProjection(newStubProjection("cart-summary", []string{"OrderConfirmed"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

// 订阅中途失败时需要回滚已完成的订阅和注册状态
func TestProjectionManager_RegisterSubscribeFailureRollsBack(t *testing.T) {
	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{subscribeErrOn: "OrderConfirmed"}
	manager := NewProjectionManager(eventStore, eventBus)

	proj := newStubProjection("cart-summary", []string{"ProductSelected", "OrderConfirmed"})
	err := manager.RegisterProjection(proj)
	require.Error(t, err)

	assert.NotContains(t, manager.projections, "cart-summary")
	_, statusErr := manager.GetProjectionStatus("cart-summary")
	assert.Error(t, statusErr)
	// 第一个成功的订阅被退订
	assert.Contains(t, eventBus.unsubscribed, "ProductSelected")
}

func TestProjectionManager_UnregisterProjection(t *testing.T) {
	manager, _, eventBus := newCartViewManager()

	proj := newStubProjection("cart-summary", []string{"ProductSelected"})
	require.NoError(t, manager.RegisterProjection(proj))
	require.NoError(t, manager.UnregisterProjection("cart-summary"))

	assert.NotContains(t, manager.projections, "cart-summary")
	assert.Contains(t, eventBus.unsubscribed, "ProductSelected")

	assert.Error(t, manager.UnregisterProjection("cart-summary"))
}

func TestProjectionManager_GetProjectionStatus_NotFound(t *testing.T) {
	manager, _, _ := newCartViewManager()

	_, err := manager.GetProjectionStatus("missing-view")
	assert.Error(t, err)
}

// 返回的状态是副本，调用方修改不应影响管理器内部状态
func TestProjectionManager_StatusReturnsCopy(t *testing.T) {
	manager, _, _ := newCartViewManager()
	require.NoError(t, manager.RegisterProjection(newStubProjection("cart-summary", []string{"ProductSelected"})))

	status, err := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, err)
	status.ProcessedEvents = 999

	again, err := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.ProcessedEvents)
}

func TestProjectionManager_GetAllProjectionStatuses(t *testing.T) {
	manager, _, _ := newCartViewManager()

	require.NoError(t, manager.RegisterProjection(newStubProjection("cart-summary", []string{"ProductSelected"})))
	require.NoError(t, manager.RegisterProjection(newStubProjection("cart-audit", []string{"OrderConfirmed"})))

	statuses := manager.GetAllProjectionStatuses()
	assert.Len(t, statuses, 2)
	assert.Contains(t, statuses, "cart-summary")
	assert.Contains(t, statuses, "cart-audit")
}

func TestProjectionManager_StartStopProjection(t *testing.T) {
	manager, _, _ := newCartViewManager()
	require.NoError(t, manager.RegisterProjection(newStubProjection("cart-summary", []string{"ProductSelected"})))

	require.NoError(t, manager.StartProjection("cart-summary"))
	status, err := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, err)
	assert.Equal(t, "running", status.Status)

	require.NoError(t, manager.StopProjection("cart-summary"))
	status, err = manager.GetProjectionStatus("cart-summary")
	require.NoError(t, err)
	assert.Equal(t, "stopped", status.Status)

	assert.Error(t, manager.StartProjection("missing-view"))
}

func TestProjectionManager_CustomConfig(t *testing.T) {
	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{}

	config := &ProjectionConfig{
		MaxRetries:   5,
		RetryBackoff: 2 * time.Second,
	}
	manager := NewProjectionManagerWithConfig(eventStore, eventBus, config)

	assert.Equal(t, 5, manager.config.MaxRetries)
	assert.Equal(t, 2*time.Second, manager.config.RetryBackoff)
}

func TestDefaultProjectionConfig(t *testing.T) {
	config := DefaultProjectionConfig()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 1*time.Second, config.RetryBackoff)
	assert.NotNil(t, config.DeadLetterFunc)
}

// 同一事件类型可以驱动多个投影
func TestProjectionManager_SharedEventType(t *testing.T) {
	manager, _, eventBus := newCartViewManager()

	require.NoError(t, manager.RegisterProjection(newStubProjection("cart-summary", []string{"ProductSelected"})))
	require.NoError(t, manager.RegisterProjection(newStubProjection("cart-audit", []string{"ProductSelected"})))

	assert.Len(t, manager.projections, 2)
	assert.Len(t, eventBus.subscriptions["ProductSelected"], 2)
}

// 投影处于 stopped 状态时实时事件被跳过，启动后才会处理
func TestProjectionEventHandler_ProcessOnlyWhenRunning(t *testing.T) {
	manager, _, _ := newCartViewManager()

	proj := newStubProjection("cart-summary", []string{"ProductSelected"})
	require.NoError(t, manager.RegisterProjection(proj))

	handler := &projectionEventHandler{projection: proj, manager: manager}
	evt := &eventing.Event{
		Message: messaging.Message{
			ID:        "event-1",
			Type:      "ProductSelected",
			Timestamp: time.Now(),
			Metadata:  make(map[string]any),
		},
	}

	require.NoError(t, handler.HandleEvent(context.Background(), evt))
	assert.Equal(t, 0, proj.handled())

	require.NoError(t, manager.StartProjection("cart-summary"))

	require.NoError(t, handler.HandleEvent(context.Background(), evt))
	assert.Equal(t, 1, proj.handled())
}

// 从检查点恢复时只重放检查点之后的事件
func TestProjectionManager_ResumeFromCheckpoint_ReplaysFromStore(t *testing.T) {
	ctx := context.Background()
	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{}
	checkpointStore := NewMemoryCheckpointStore()

	manager := NewProjectionManager(eventStore, eventBus).WithCheckpointStore(checkpointStore)
	proj := newStubProjection("cart-summary", []string{"ProductSelected"})
	require.NoError(t, manager.RegisterProjection(proj))

	events := []eventing.Event{
		*eventing.NewEvent("cart-1", "FoodCart", "ProductSelected", 1, map[string]any{"productId": "p-1"}),
		*eventing.NewEvent("cart-1", "FoodCart", "ProductSelected", 2, map[string]any{"productId": "p-2"}),
		*eventing.NewEvent("cart-1", "FoodCart", "ProductSelected", 3, map[string]any{"productId": "p-3"}),
	}
	// 时间戳取齐，验证相同时间戳下以事件 ID 为界不重复重放
	now := time.Now()
	for i := range events {
		events[i].Timestamp = now
	}
	require.NoError(t, eventStore.AppendEvents(ctx, "cart-1", asStorableEvents(events), 0))

	checkpoint := NewCheckpoint("cart-summary", 2, events[1].ID, events[1].Timestamp)
	require.NoError(t, checkpointStore.Save(ctx, checkpoint))

	require.NoError(t, manager.ResumeFromCheckpoint(ctx, "cart-summary"))

	assert.Equal(t, 1, proj.handled())

	status, err := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, err)
	assert.Equal(t, int64(3), status.ProcessedEvents)
	assert.Equal(t, events[2].ID, status.LastEventID)
	// 恢复完成后投影进入运行状态
	assert.Equal(t, "running", status.Status)
}

// 重放失败时状态转为 error 且不推进 ProcessedEvents
func TestProjectionManager_ResumeFromCheckpoint_ReplayFailureStops(t *testing.T) {
	ctx := context.Background()
	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{}
	checkpointStore := NewMemoryCheckpointStore()

	manager := NewProjectionManager(eventStore, eventBus).WithCheckpointStore(checkpointStore)
	proj := newStubProjection("cart-summary", []string{"ProductSelected"})
	proj.handleFunc = func(ctx context.Context, event eventing.IEvent) error {
		return fmt.Errorf("replay failed:%s", event.GetID())
	}
	require.NoError(t, manager.RegisterProjection(proj))

	e1 := eventing.NewEvent("cart-1", "FoodCart", "ProductSelected", 1, nil)
	e2 := eventing.NewEvent("cart-1", "FoodCart", "ProductSelected", 2, nil)
	now := time.Now()
	e1.Timestamp = now
	e2.Timestamp = now
	require.NoError(t, eventStore.AppendEvents(ctx, "cart-1", []eventing.IStorableEvent{e1, e2}, 0))

	checkpoint := NewCheckpoint("cart-summary", 1, e1.ID, e1.Timestamp)
	require.NoError(t, checkpointStore.Save(ctx, checkpoint))

	err := manager.ResumeFromCheckpoint(ctx, "cart-summary")
	require.Error(t, err)

	status, sErr := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, sErr)
	assert.Equal(t, "error", status.Status)
	assert.Equal(t, int64(1), status.ProcessedEvents)
	assert.Contains(t, status.LastError, "replay failed")
}

// 重放阶段首次失败后重试成功
func TestProjectionManager_ReplayRetry_Success(t *testing.T) {
	ctx := context.Background()
	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{}

	cfg := &ProjectionConfig{
		MaxRetries:   2,
		RetryBackoff: 0,
	}
	manager := NewProjectionManagerWithConfig(eventStore, eventBus, cfg)

	var attempts int
	proj := newStubProjection("cart-summary", []string{"ProductSelected"})
	proj.handleFunc = func(ctx context.Context, event eventing.IEvent) error {
		attempts++
		if attempts == 1 {
			return fmt.Errorf("transient:%s", event.GetID())
		}
		return nil
	}
	require.NoError(t, manager.RegisterProjection(proj))
	manager.checkpointStore = NewMemoryCheckpointStore()

	evt := eventing.NewEvent("cart-1", "FoodCart", "ProductSelected", 1, nil)
	require.NoError(t, manager.applyReplayEvent(ctx, "cart-summary", proj, evt))

	assert.Equal(t, 2, attempts)

	status, err := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.ProcessedEvents)
	assert.Equal(t, int64(0), status.FailedEvents)
	assert.Equal(t, evt.ID, status.LastEventID)
}

// 重放阶段重试耗尽后仍失败
func TestProjectionManager_ReplayRetry_MaxRetriesExceeded(t *testing.T) {
	ctx := context.Background()
	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{}

	cfg := &ProjectionConfig{
		MaxRetries:   2,
		RetryBackoff: 0,
	}
	manager := NewProjectionManagerWithConfig(eventStore, eventBus, cfg)

	var attempts int
	proj := newStubProjection("cart-summary", []string{"ProductSelected"})
	proj.handleFunc = func(ctx context.Context, event eventing.IEvent) error {
		attempts++
		return fmt.Errorf("persistent:%s", event.GetID())
	}
	require.NoError(t, manager.RegisterProjection(proj))

	evt := eventing.NewEvent("cart-1", "FoodCart", "ProductSelected", 1, nil)
	err := manager.applyReplayEvent(ctx, "cart-summary", proj, evt)
	require.Error(t, err)

	// 初始尝试加两次重试
	assert.Equal(t, 3, attempts)

	status, sErr := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, sErr)
	assert.Equal(t, int64(0), status.ProcessedEvents)
	assert.Equal(t, int64(1), status.FailedEvents)
	assert.Contains(t, status.LastError, "persistent")
}

// 重试退避期间 context 取消会立即中断重放
func TestProjectionManager_ReplayRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{}

	cfg := &ProjectionConfig{
		MaxRetries:   2,
		RetryBackoff: 10 * time.Millisecond,
	}
	manager := NewProjectionManagerWithConfig(eventStore, eventBus, cfg)

	var attempts int
	proj := newStubProjection("cart-summary", []string{"ProductSelected"})
	proj.handleFunc = func(ctx context.Context, event eventing.IEvent) error {
		attempts++
		return fmt.Errorf("canceled:%s", event.GetID())
	}
	require.NoError(t, manager.RegisterProjection(proj))

	evt := eventing.NewEvent("cart-1", "FoodCart", "ProductSelected", 1, nil)
	err := manager.applyReplayEvent(ctx, "cart-summary", proj, evt)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, attempts)

	status, sErr := manager.GetProjectionStatus("cart-summary")
	require.NoError(t, sErr)
	// 取消发生在状态更新之前，计数不应变化
	assert.Equal(t, int64(0), status.ProcessedEvents)
	assert.Equal(t, int64(0), status.FailedEvents)
}

func BenchmarkProjectionManager_RegisterProjection(b *testing.B) {
	eventStore := store.NewMemoryEventStore()
	eventBus := &stubEventBus{}
	manager := NewProjectionManager(eventStore, eventBus)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		proj := newStubProjection(fmt.Sprintf("bench-view-%d", i), []string{"ProductSelected"})
		manager.RegisterProjection(proj)
	}
}

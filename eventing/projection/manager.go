// Package projection 管理读模型投影：注册订阅、状态追踪、检查点续传与重建
package projection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"foodcart/eventing"
	"foodcart/eventing/bus"
	"foodcart/eventing/store"
	"foodcart/logging"
	"foodcart/messaging"
)

var projectionLogger = logging.ComponentLogger("projection.manager")

// 投影生命周期状态值
const (
	statusRunning    = "running"
	statusStopped    = "stopped"
	statusRebuilding = "rebuilding"
	statusError      = "error"
)

// IProjection 读模型投影
type IProjection interface {
	// GetName 投影名称，注册表内唯一
	GetName() string

	// Handle 处理单个事件
	Handle(ctx context.Context, event eventing.IEvent) error

	// GetSupportedEventTypes 订阅的事件类型
	GetSupportedEventTypes() []string

	// Rebuild 从给定事件流整体重建
	Rebuild(ctx context.Context, events []eventing.Event) error

	// GetStatus 投影自身维护的状态
	GetStatus() ProjectionStatus
}

// ProjectionStatus 投影运行状态
type ProjectionStatus struct {
	Name            string    `json:"name"`
	LastEventID     string    `json:"last_event_id"`
	LastEventTime   time.Time `json:"last_event_time"`
	ProcessedEvents int64     `json:"processed_events"`
	FailedEvents    int64     `json:"failed_events"`
	Status          string    `json:"status"` // running, stopped, rebuilding, error
	LastError       string    `json:"last_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProjectionConfig 投影事件处理的错误策略
type ProjectionConfig struct {
	// MaxRetries 重放阶段的就地重试次数，0 不重试
	MaxRetries int

	// RetryBackoff 重试间隔
	RetryBackoff time.Duration

	// DeadLetterFunc 实时处理重试耗尽后的兜底回调
	DeadLetterFunc func(err error, event eventing.Event, projection string)
}

// DefaultProjectionConfig 默认错误策略：重试 3 次，死信只记日志
func DefaultProjectionConfig() *ProjectionConfig {
	return &ProjectionConfig{
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		DeadLetterFunc: func(err error, event eventing.Event, projection string) {
			projectionLogger.Error(context.Background(), "event dropped after retries exhausted",
				logging.Error(err),
				logging.String("projection", projection),
				logging.String("event_id", event.ID),
				logging.String("event_type", event.Type),
			)
		},
	}
}

// ProjectionManager 投影管理器
//
// 把投影挂到事件总线上做实时更新，配合检查点存储支持
// 重启续传；Rebuild 提供全量重建入口。
type ProjectionManager struct {
	projections     map[string]IProjection
	eventStore      store.IEventStore
	eventBus        bus.IEventBus
	statuses        map[string]*ProjectionStatus
	handlers        map[string]map[string]*projectionEventHandler
	config          *ProjectionConfig
	checkpointStore ICheckpointStore
	mutex           sync.RWMutex
}

// NewProjectionManager 创建投影管理器
func NewProjectionManager(eventStore store.IEventStore, eventBus bus.IEventBus) *ProjectionManager {
	return NewProjectionManagerWithConfig(eventStore, eventBus, nil)
}

// NewProjectionManagerWithConfig 创建带错误策略的投影管理器
func NewProjectionManagerWithConfig(eventStore store.IEventStore, eventBus bus.IEventBus, config *ProjectionConfig) *ProjectionManager {
	if config == nil {
		config = DefaultProjectionConfig()
	}
	return &ProjectionManager{
		projections: make(map[string]IProjection),
		eventStore:  eventStore,
		eventBus:    eventBus,
		statuses:    make(map[string]*ProjectionStatus),
		handlers:    make(map[string]map[string]*projectionEventHandler),
		config:      config,
	}
}

// WithCheckpointStore 启用检查点存储
//
// 启用后每处理一个事件就落一次检查点，进程重启可以从
// ResumeFromCheckpoint 续传。
func (pm *ProjectionManager) WithCheckpointStore(store ICheckpointStore) *ProjectionManager {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	pm.checkpointStore = store
	return pm
}

// RegisterProjection 注册投影并订阅其事件类型
//
// 任意一个事件类型订阅失败时回滚全部已订阅项，保证不出现半注册。
func (pm *ProjectionManager) RegisterProjection(projection IProjection) error {
	if projection == nil {
		return fmt.Errorf("projection cannot be nil")
	}

	ctx := context.Background()

	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	name := projection.GetName()
	if name == "" {
		return fmt.Errorf("projection name cannot be empty")
	}
	if _, exists := pm.projections[name]; exists {
		return fmt.Errorf("projection %s already registered", name)
	}

	pm.projections[name] = projection
	pm.statuses[name] = &ProjectionStatus{
		Name:      name,
		Status:    statusStopped,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	pm.handlers[name] = make(map[string]*projectionEventHandler)

	subscribed := make(map[string]*projectionEventHandler)
	for _, eventType := range projection.GetSupportedEventTypes() {
		handler := &projectionEventHandler{projection: projection, manager: pm}
		pm.handlers[name][eventType] = handler

		if err := pm.eventBus.SubscribeEvent(ctx, eventType, handler); err != nil {
			delete(pm.projections, name)
			delete(pm.statuses, name)
			delete(pm.handlers, name)
			for t, h := range subscribed {
				if unsubErr := pm.eventBus.UnsubscribeEvent(ctx, t, h); unsubErr != nil {
					projectionLogger.Warn(ctx, "rollback unsubscribe failed", logging.Error(unsubErr),
						logging.String("projection", name), logging.String("event_type", t))
				}
			}
			return fmt.Errorf("failed to subscribe to event type %s: %w", eventType, err)
		}
		subscribed[eventType] = handler
	}

	projectionLogger.Info(ctx, "projection registered", logging.String("projection", name))
	return nil
}

// UnregisterProjection 取消注册并退订全部事件类型
func (pm *ProjectionManager) UnregisterProjection(name string) error {
	ctx := context.Background()

	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	projection, exists := pm.projections[name]
	if !exists {
		return fmt.Errorf("projection %s not found", name)
	}

	for _, eventType := range projection.GetSupportedEventTypes() {
		handler := pm.handlers[name][eventType]
		if err := pm.eventBus.UnsubscribeEvent(ctx, eventType, handler); err != nil {
			projectionLogger.Warn(ctx, "unsubscribe failed", logging.Error(err),
				logging.String("event_type", eventType),
				logging.String("projection", name),
			)
		}
	}

	delete(pm.projections, name)
	delete(pm.statuses, name)
	delete(pm.handlers, name)

	projectionLogger.Info(ctx, "projection unregistered", logging.String("projection", name))
	return nil
}

// StartProjection 将投影置为运行态，重复启动为幂等
func (pm *ProjectionManager) StartProjection(name string) error {
	return pm.setProjectionStatus(name, statusRunning)
}

// StopProjection 将投影置为停止态，停止期间到达的事件被丢弃
func (pm *ProjectionManager) StopProjection(name string) error {
	return pm.setProjectionStatus(name, statusStopped)
}

func (pm *ProjectionManager) setProjectionStatus(name, target string) error {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	status, exists := pm.statuses[name]
	if !exists {
		return fmt.Errorf("projection %s not found", name)
	}
	if status.Status == target {
		return nil
	}
	status.Status = target
	status.UpdatedAt = time.Now()

	projectionLogger.Info(context.Background(), "projection status changed",
		logging.String("projection", name),
		logging.String("status", target))
	return nil
}

// GetProjectionStatus 返回投影状态的副本
func (pm *ProjectionManager) GetProjectionStatus(name string) (*ProjectionStatus, error) {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	status, exists := pm.statuses[name]
	if !exists {
		return nil, fmt.Errorf("projection %s not found", name)
	}
	statusCopy := *status
	return &statusCopy, nil
}

// GetAllProjectionStatuses 返回全部投影状态的副本
func (pm *ProjectionManager) GetAllProjectionStatuses() map[string]*ProjectionStatus {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	result := make(map[string]*ProjectionStatus, len(pm.statuses))
	for name, status := range pm.statuses {
		statusCopy := *status
		result[name] = &statusCopy
	}
	return result
}

// ResumeFromCheckpoint 从检查点续传后启动投影
//
// 先把检查点之后的历史事件补放给投影，再置为运行态接收实时事件。
// 检查点不存在时从头回放；未配置检查点存储或事件存储时退化为直接启动。
func (pm *ProjectionManager) ResumeFromCheckpoint(ctx context.Context, projectionName string) error {
	pm.mutex.RLock()
	checkpointStore := pm.checkpointStore
	eventStore := pm.eventStore
	projection, exists := pm.projections[projectionName]
	pm.mutex.RUnlock()

	if !exists {
		return fmt.Errorf("projection %s not found", projectionName)
	}
	if checkpointStore == nil {
		projectionLogger.Warn(ctx, "checkpoint store not configured, starting without resume",
			logging.String("projection", projectionName))
		return pm.StartProjection(projectionName)
	}

	checkpoint, err := checkpointStore.Load(ctx, projectionName)
	if err != nil {
		if err != ErrCheckpointNotFound {
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}
		projectionLogger.Info(ctx, "no checkpoint found, replaying from start",
			logging.String("projection", projectionName))
		checkpoint = NewCheckpoint(projectionName, 0, "", time.Time{})
	}

	projectionLogger.Info(ctx, "resuming projection from checkpoint",
		logging.String("projection", projectionName),
		logging.Int64("position", checkpoint.Position),
		logging.String("last_event_id", checkpoint.LastEventID))

	// 用检查点预填充状态，回放前状态即可见
	pm.mutex.Lock()
	if status, ok := pm.statuses[projectionName]; ok && status != nil {
		status.LastEventID = checkpoint.LastEventID
		status.LastEventTime = checkpoint.LastEventTime
		status.ProcessedEvents = checkpoint.Position
		status.Status = statusStopped
		status.LastError = ""
		status.UpdatedAt = time.Now()
	}
	pm.mutex.Unlock()

	if eventStore == nil {
		projectionLogger.Warn(ctx, "event store not configured, skipping replay",
			logging.String("projection", projectionName))
		return pm.StartProjection(projectionName)
	}

	replayed, err := pm.replayFromCheckpoint(ctx, projectionName, projection, checkpoint)
	if err != nil {
		return err
	}

	projectionLogger.Info(ctx, "projection replay complete",
		logging.String("projection", projectionName),
		logging.Int64("replayed_events", replayed))

	return pm.StartProjection(projectionName)
}

func (pm *ProjectionManager) replayFromCheckpoint(ctx context.Context, projectionName string, projection IProjection, checkpoint *Checkpoint) (int64, error) {
	supported := make(map[string]struct{})
	for _, t := range projection.GetSupportedEventTypes() {
		supported[t] = struct{}{}
	}

	events, err := pm.fetchEventsAfter(ctx, checkpoint.LastEventID, checkpoint.LastEventTime)
	if err != nil {
		return 0, fmt.Errorf("failed to load events for projection %s: %w", projectionName, err)
	}

	var replayed int64
	for i := range events {
		evt := &events[i]
		if len(supported) > 0 {
			if _, ok := supported[evt.GetType()]; !ok {
				continue
			}
		}

		if err := pm.applyReplayEvent(ctx, projectionName, projection, evt); err != nil {
			pm.mutex.Lock()
			if status, ok := pm.statuses[projectionName]; ok && status != nil {
				status.Status = statusError
				status.LastError = err.Error()
				status.UpdatedAt = time.Now()
			}
			pm.mutex.Unlock()
			return replayed, fmt.Errorf("replay projection %s failed at event %s: %w", projectionName, evt.GetID(), err)
		}
		replayed++
	}
	return replayed, nil
}

// fetchEventsAfter 读取检查点之后的事件
//
// 事件流按 (timestamp, id) 升序，事件 ID 为时间有序的 UUIDv7，
// lastEventID 可直接作游标：丢弃游标事件及其之前的全部事件。
func (pm *ProjectionManager) fetchEventsAfter(ctx context.Context, after string, fromTime time.Time) ([]eventing.Event, error) {
	events, err := pm.eventStore.StreamEvents(ctx, fromTime)
	if err != nil {
		return nil, err
	}
	if after == "" {
		return events, nil
	}
	for i := range events {
		if events[i].GetID() == after {
			return events[i+1:], nil
		}
	}
	return events, nil
}

// applyReplayEvent 回放阶段处理单个事件，按配置就地重试
//
// 失败立即中止回放，不推进状态；退避等待响应 ctx 取消。
func (pm *ProjectionManager) applyReplayEvent(ctx context.Context, projectionName string, projection IProjection, evt eventing.IEvent) error {
	checkpointStore := pm.checkpointStore
	config := pm.config

	var err error
	for attempt := 0; ; attempt++ {
		err = projection.Handle(ctx, evt)
		if err == nil || attempt >= config.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.RetryBackoff):
		}
	}

	checkpoint := pm.recordEventOutcome(projectionName, evt, err, checkpointStore != nil)
	if err != nil {
		return err
	}

	if checkpoint != nil {
		if saveErr := checkpointStore.Save(ctx, checkpoint); saveErr != nil {
			projectionLogger.Warn(ctx, "failed to save checkpoint", logging.Error(saveErr),
				logging.String("projection", projectionName))
		}
	}
	return nil
}

// recordEventOutcome 在写锁下更新状态，成功时返回待保存的检查点
func (pm *ProjectionManager) recordEventOutcome(projectionName string, evt eventing.IEvent, handleErr error, wantCheckpoint bool) *Checkpoint {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	status, ok := pm.statuses[projectionName]
	if !ok || status == nil {
		return nil
	}

	status.UpdatedAt = time.Now()
	if handleErr != nil {
		status.FailedEvents++
		status.LastError = handleErr.Error()
		return nil
	}

	status.ProcessedEvents++
	status.LastEventID = evt.GetID()
	status.LastEventTime = evt.GetTimestamp()
	status.LastError = ""

	if !wantCheckpoint {
		return nil
	}
	return NewCheckpoint(projectionName, status.ProcessedEvents, status.LastEventID, status.LastEventTime)
}

// RebuildProjection 用给定事件流整体重建投影
//
// 重建前清空旧检查点，完成后以事件流末尾落一个新检查点；
// 重建结束后投影处于停止态，由调用方决定何时启动。
func (pm *ProjectionManager) RebuildProjection(ctx context.Context, name string, events []eventing.Event) error {
	pm.mutex.Lock()
	checkpointStore := pm.checkpointStore
	projection, exists := pm.projections[name]
	status := pm.statuses[name]
	pm.mutex.Unlock()

	if !exists {
		return fmt.Errorf("projection %s not found", name)
	}

	projectionLogger.Info(ctx, "rebuilding projection",
		logging.String("projection", name),
		logging.Int("events", len(events)))

	if checkpointStore != nil {
		if err := checkpointStore.Delete(ctx, name); err != nil {
			projectionLogger.Warn(ctx, "failed to delete stale checkpoint", logging.Error(err),
				logging.String("projection", name))
		}
	}

	pm.mutex.Lock()
	status.Status = statusRebuilding
	status.UpdatedAt = time.Now()
	pm.mutex.Unlock()

	if err := projection.Rebuild(ctx, events); err != nil {
		pm.mutex.Lock()
		status.Status = statusError
		status.LastError = err.Error()
		status.UpdatedAt = time.Now()
		pm.mutex.Unlock()
		return fmt.Errorf("failed to rebuild projection %s: %w", name, err)
	}

	pm.mutex.Lock()
	status.Status = statusStopped
	status.ProcessedEvents = int64(len(events))
	status.UpdatedAt = time.Now()
	pm.mutex.Unlock()

	if checkpointStore != nil && len(events) > 0 {
		last := events[len(events)-1]
		checkpoint := NewCheckpoint(name, int64(len(events)), last.ID, last.Timestamp)
		if err := checkpointStore.Save(ctx, checkpoint); err != nil {
			projectionLogger.Warn(ctx, "failed to save checkpoint", logging.Error(err),
				logging.String("projection", name))
		}
	}

	projectionLogger.Info(ctx, "projection rebuilt",
		logging.String("projection", name),
		logging.Int("events", len(events)))
	return nil
}

// projectionEventHandler 把投影适配为事件总线处理器
type projectionEventHandler struct {
	projection IProjection
	manager    *ProjectionManager
}

// HandleEvent 实时处理单个事件
//
// 只有运行态的投影才处理；状态更新在写锁下进行，
// 事件处理本身不持锁。失败事件交给 DeadLetterFunc。
func (h *projectionEventHandler) HandleEvent(ctx context.Context, event eventing.IEvent) error {
	name := h.projection.GetName()

	h.manager.mutex.RLock()
	status, exists := h.manager.statuses[name]
	checkpointStore := h.manager.checkpointStore
	running := exists && status.Status == statusRunning
	h.manager.mutex.RUnlock()

	if !running {
		return nil
	}

	err := h.projection.Handle(ctx, event)
	checkpoint := h.manager.recordEventOutcome(name, event, err, checkpointStore != nil)

	if err != nil {
		if e, ok := event.(*eventing.Event); ok {
			h.manager.config.DeadLetterFunc(err, *e, name)
		}
		projectionLogger.Error(ctx, "projection failed to handle event", logging.Error(err),
			logging.String("projection", name),
			logging.String("event_type", event.GetType()),
		)
		return err
	}

	if checkpoint != nil {
		if saveErr := checkpointStore.Save(ctx, checkpoint); saveErr != nil {
			projectionLogger.Warn(ctx, "failed to save checkpoint", logging.Error(saveErr),
				logging.String("projection", name))
		}
	}

	projectionLogger.Debug(ctx, "projection handled event",
		logging.String("event_type", event.GetType()),
		logging.String("projection", name),
	)
	return nil
}

// GetEventTypes 订阅的事件类型
func (h *projectionEventHandler) GetEventTypes() []string {
	return h.projection.GetSupportedEventTypes()
}

// GetHandlerName 处理器名称
func (h *projectionEventHandler) GetHandlerName() string {
	return h.projection.GetName()
}

// Handle 实现消息总线处理器接口
func (h *projectionEventHandler) Handle(ctx context.Context, message messaging.IMessage) error {
	if event, ok := message.(eventing.IEvent); ok {
		return h.HandleEvent(ctx, event)
	}
	return fmt.Errorf("invalid message type: %T", message)
}

// Type 处理器类型标识
func (h *projectionEventHandler) Type() string {
	return "projectionEventHandler"
}

var _ bus.IEventHandler = (*projectionEventHandler)(nil)

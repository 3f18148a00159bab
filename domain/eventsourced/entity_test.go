package eventsourced

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodcart/domain"
)

// orderOpened / itemAdded 构成一个最小的订单聚合，用于验证基类行为
type orderOpened struct {
	orderID string
}

func (e *orderOpened) EventType() string { return "OrderOpened" }

type itemAdded struct {
	item string
}

func (e *itemAdded) EventType() string { return "ItemAdded" }

type orderAggregate struct {
	*EventSourcedAggregate[string]

	Opened bool
	Items  []string
}

func newOrderAggregate(id string) *orderAggregate {
	return &orderAggregate{
		EventSourcedAggregate: NewEventSourcedAggregate[string](id, "Order"),
	}
}

func (a *orderAggregate) ApplyEvent(evt domain.IDomainEvent) error {
	switch e := evt.(type) {
	case *orderOpened:
		a.Opened = true
	case *itemAdded:
		a.Items = append(a.Items, e.item)
	default:
		return fmt.Errorf("unknown event type: %s", evt.EventType())
	}
	return a.EventSourcedAggregate.ApplyEvent(evt)
}

func (a *orderAggregate) ApplyAndRecord(evt domain.IDomainEvent) error {
	if err := a.ApplyEvent(evt); err != nil {
		return err
	}
	a.AddDomainEvent(evt)
	return nil
}

// TestNewEventSourcedAggregate 新建聚合的初始状态
func TestNewEventSourcedAggregate(t *testing.T) {
	agg := NewEventSourcedAggregate[string]("order-1", "Order")

	assert.Equal(t, "order-1", agg.GetID())
	assert.Equal(t, int64(0), agg.GetVersion())
	assert.Equal(t, "Order", agg.GetAggregateType())
	assert.Empty(t, agg.GetUncommittedEvents())
}

// TestApplyEvent_VersionIncrements 每次应用事件版本号加一
func TestApplyEvent_VersionIncrements(t *testing.T) {
	agg := newOrderAggregate("order-1")

	require.NoError(t, agg.ApplyEvent(&orderOpened{orderID: "order-1"}))
	require.NoError(t, agg.ApplyEvent(&itemAdded{item: "deluxe-burger"}))
	require.NoError(t, agg.ApplyEvent(&itemAdded{item: "fries"}))

	assert.Equal(t, int64(3), agg.GetVersion())
	assert.True(t, agg.Opened)
	assert.Equal(t, []string{"deluxe-burger", "fries"}, agg.Items)
	assert.Empty(t, agg.GetUncommittedEvents(), "重放路径不记录未提交事件")
}

// TestApplyAndRecord_OverrideRoutesThroughConcreteApply 覆盖后的
// ApplyAndRecord 必须经过子类 ApplyEvent 更新业务状态
func TestApplyAndRecord_OverrideRoutesThroughConcreteApply(t *testing.T) {
	agg := newOrderAggregate("order-1")

	require.NoError(t, agg.ApplyAndRecord(&orderOpened{orderID: "order-1"}))
	require.NoError(t, agg.ApplyAndRecord(&itemAdded{item: "deluxe-burger"}))

	assert.True(t, agg.Opened)
	assert.Equal(t, []string{"deluxe-burger"}, agg.Items)
	assert.Equal(t, int64(2), agg.GetVersion())

	events := agg.GetUncommittedEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "OrderOpened", events[0].EventType())
	assert.Equal(t, "ItemAdded", events[1].EventType())
}

// TestApplyAndRecord_BaseDispatchSkipsConcreteState 直接调用基类
// ApplyAndRecord 只会走基类 ApplyEvent，业务状态不更新。
// 方法提升是静态绑定，这正是具体聚合必须覆盖 ApplyAndRecord 的原因。
func TestApplyAndRecord_BaseDispatchSkipsConcreteState(t *testing.T) {
	agg := newOrderAggregate("order-1")

	require.NoError(t, agg.EventSourcedAggregate.ApplyAndRecord(&orderOpened{orderID: "order-1"}))

	assert.False(t, agg.Opened, "基类静态分发不经过子类 ApplyEvent")
	assert.Equal(t, int64(1), agg.GetVersion())
	assert.Len(t, agg.GetUncommittedEvents(), 1)
}

// TestApplyAndRecord_FailedApplyNotRecorded 应用失败的事件不记录
func TestApplyAndRecord_FailedApplyNotRecorded(t *testing.T) {
	agg := newOrderAggregate("order-1")

	err := agg.ApplyAndRecord(&unknownEvent{})

	require.Error(t, err)
	assert.Empty(t, agg.GetUncommittedEvents())
	assert.Equal(t, int64(0), agg.GetVersion())
}

type unknownEvent struct{}

func (e *unknownEvent) EventType() string { return "Unknown" }

// TestGetUncommittedEvents_ReturnsCopy 返回副本，修改不影响内部切片
func TestGetUncommittedEvents_ReturnsCopy(t *testing.T) {
	agg := newOrderAggregate("order-1")
	require.NoError(t, agg.ApplyAndRecord(&orderOpened{orderID: "order-1"}))

	events := agg.GetUncommittedEvents()
	events[0] = &itemAdded{item: "tampered"}

	fresh := agg.GetUncommittedEvents()
	require.Len(t, fresh, 1)
	assert.Equal(t, "OrderOpened", fresh[0].EventType())
}

// TestMarkEventsAsCommitted 提交后清空未提交事件，版本保留
func TestMarkEventsAsCommitted(t *testing.T) {
	agg := newOrderAggregate("order-1")
	require.NoError(t, agg.ApplyAndRecord(&orderOpened{orderID: "order-1"}))
	require.NoError(t, agg.ApplyAndRecord(&itemAdded{item: "fries"}))
	require.Len(t, agg.GetUncommittedEvents(), 2)

	agg.MarkEventsAsCommitted()

	assert.Empty(t, agg.GetUncommittedEvents())
	assert.Equal(t, int64(2), agg.GetVersion())

	// 提交后继续产生新事件
	require.NoError(t, agg.ApplyAndRecord(&itemAdded{item: "cola"}))
	assert.Len(t, agg.GetUncommittedEvents(), 1)
	assert.Equal(t, int64(3), agg.GetVersion())
}

// TestAggregate_ConcurrentReads 并发读写不竞态
func TestAggregate_ConcurrentReads(t *testing.T) {
	agg := NewEventSourcedAggregate[string]("order-1", "Order")

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				agg.AddDomainEvent(&itemAdded{item: "fries"})
				_ = agg.GetUncommittedEvents()
				_ = agg.GetVersion()
				_ = agg.GetID()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, agg.GetUncommittedEvents(), 400)
}

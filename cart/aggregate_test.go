package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodcart/domain"
	apperrors "foodcart/errors"
)

func newCreatedCart(t *testing.T, id string) *FoodCart {
	t.Helper()
	c := NewFoodCart(id)
	require.NoError(t, c.Create())
	return c
}

func TestFoodCart_Create(t *testing.T) {
	c := NewFoodCart("cart-1")

	require.NoError(t, c.Create())

	assert.Equal(t, int64(1), c.GetVersion())
	assert.NotNil(t, c.SelectedProducts)
	assert.Empty(t, c.SelectedProducts)
	assert.False(t, c.Confirmed)

	events := c.GetUncommittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeFoodCartCreated, events[0].EventType())
}

func TestFoodCart_CreateTwice(t *testing.T) {
	c := newCreatedCart(t, "cart-1")

	err := c.Create()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already created")
	require.ErrorIs(t, err, domain.ErrEntityAlreadyExists)
	assert.Equal(t, int64(1), c.GetVersion())

	// 归一化后进入重复写入类别（HTTP 层据此映射 409）
	normalized := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeDuplicate, normalized.Code())
}

// 命令直接作用于当前实例时状态必须同步更新，不依赖重新加载回放。
func TestFoodCart_CommandsUpdateLiveState(t *testing.T) {
	c := NewFoodCart("cart-1")

	require.NoError(t, c.Create())
	require.NotNil(t, c.SelectedProducts)

	require.NoError(t, c.Select("deluxe-burger", 3))
	assert.Equal(t, 3, c.SelectedProducts["deluxe-burger"])

	require.NoError(t, c.Deselect("deluxe-burger", 1))
	assert.Equal(t, 2, c.SelectedProducts["deluxe-burger"])

	applied, err := c.Confirm()
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, c.Confirmed)

	assert.Equal(t, int64(4), c.GetVersion())
	assert.Len(t, c.GetUncommittedEvents(), 4)
}

func TestFoodCart_SelectAccumulates(t *testing.T) {
	c := newCreatedCart(t, "cart-1")

	require.NoError(t, c.Select("deluxe-burger", 3))
	require.NoError(t, c.Select("deluxe-burger", 2))
	require.NoError(t, c.Select("fries", 1))

	assert.Equal(t, 5, c.SelectedProducts["deluxe-burger"])
	assert.Equal(t, 1, c.SelectedProducts["fries"])
	assert.Equal(t, int64(4), c.GetVersion())
}

func TestFoodCart_SelectNoQuantityValidation(t *testing.T) {
	c := newCreatedCart(t, "cart-1")

	// 数量不做正负校验
	require.NoError(t, c.Select("fries", 0))
	require.NoError(t, c.Select("fries", -2))

	assert.Equal(t, -2, c.SelectedProducts["fries"])
}

func TestFoodCart_DeselectNeverSelected(t *testing.T) {
	c := newCreatedCart(t, "cart-1")
	require.NoError(t, c.Select("fries", 2))

	err := c.Deselect("deluxe-burger", 1)

	var deselectionErr *ProductDeselectionError
	require.ErrorAs(t, err, &deselectionErr)
	assert.Contains(t, deselectionErr.Error(), "has not been selected")
	// 校验失败不产生事件
	assert.Equal(t, int64(2), c.GetVersion())
	assert.Len(t, c.GetUncommittedEvents(), 2)
}

func TestFoodCart_DeselectTooMany(t *testing.T) {
	c := newCreatedCart(t, "cart-1")
	require.NoError(t, c.Select("fries", 2))

	err := c.Deselect("fries", 3)

	var deselectionErr *ProductDeselectionError
	require.ErrorAs(t, err, &deselectionErr)
	assert.Contains(t, deselectionErr.Error(), "more products of ID [fries]")
	assert.Equal(t, 2, c.SelectedProducts["fries"])
}

func TestFoodCart_DeselectToZeroRetainsKey(t *testing.T) {
	c := newCreatedCart(t, "cart-1")
	require.NoError(t, c.Select("fries", 2))

	require.NoError(t, c.Deselect("fries", 2))

	// 扣到零保留键（与读模型侧的删除行为刻意不一致）
	quantity, ok := c.SelectedProducts["fries"]
	assert.True(t, ok)
	assert.Equal(t, 0, quantity)

	// 余量为零后继续扣减会越过下限，校验拒绝
	err := c.Deselect("fries", 1)
	var deselectionErr *ProductDeselectionError
	require.ErrorAs(t, err, &deselectionErr)
}

func TestFoodCart_ConfirmIdempotent(t *testing.T) {
	c := newCreatedCart(t, "cart-1")

	applied, err := c.Confirm()
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, c.Confirmed)

	applied, err = c.Confirm()
	require.NoError(t, err)
	assert.False(t, applied)

	// 两次确认只产生一个 OrderConfirmed 事件
	confirmCount := 0
	for _, evt := range c.GetUncommittedEvents() {
		if evt.EventType() == EventTypeOrderConfirmed {
			confirmCount++
		}
	}
	assert.Equal(t, 1, confirmCount)
	assert.Equal(t, int64(2), c.GetVersion())
}

func TestFoodCart_ReplayDeterministic(t *testing.T) {
	history := []domain.IDomainEvent{
		&FoodCartCreated{CartID: "cart-replay"},
		&ProductSelected{CartID: "cart-replay", ProductID: "deluxe-burger", Quantity: 3},
		&ProductSelected{CartID: "cart-replay", ProductID: "fries", Quantity: 2},
		&ProductDeselected{CartID: "cart-replay", ProductID: "deluxe-burger", Quantity: 1},
		&OrderConfirmed{CartID: "cart-replay"},
	}

	replay := func() *FoodCart {
		c := NewFoodCart("cart-replay")
		for _, evt := range history {
			require.NoError(t, c.ApplyEvent(evt))
		}
		return c
	}

	first := replay()
	second := replay()

	assert.Equal(t, first.SelectedProducts, second.SelectedProducts)
	assert.Equal(t, first.Confirmed, second.Confirmed)
	assert.Equal(t, first.GetVersion(), second.GetVersion())
	assert.Equal(t, int64(len(history)), first.GetVersion())
	assert.Equal(t, 2, first.SelectedProducts["deluxe-burger"])
	assert.Equal(t, 2, first.SelectedProducts["fries"])
	assert.True(t, first.Confirmed)
	// 回放不积累未提交事件
	assert.Empty(t, first.GetUncommittedEvents())
}

func TestFoodCart_DeselectedIgnoredForAbsentKeyOnReplay(t *testing.T) {
	c := NewFoodCart("cart-odd")
	require.NoError(t, c.ApplyEvent(&FoodCartCreated{CartID: "cart-odd"}))
	// 历史中理论上不会出现，但应用规则对缺失键静默跳过
	require.NoError(t, c.ApplyEvent(&ProductDeselected{CartID: "cart-odd", ProductID: "ghost", Quantity: 1}))

	_, ok := c.SelectedProducts["ghost"]
	assert.False(t, ok)
	assert.Equal(t, int64(2), c.GetVersion())
}

package cart

// CreateFoodCart 创建购物车命令
//
// 购物车 ID 由外部标识源（UUID）提供，聚合自身不生成标识。
type CreateFoodCart struct {
	CartID string
}

func (c *CreateFoodCart) AggregateID() string { return c.CartID }

// SelectProduct 选购商品命令
//
// 不校验数量上限或正负，与确认状态无关（已确认的购物车仍可继续选购）。
type SelectProduct struct {
	CartID    string
	ProductID string
	Quantity  int
}

func (c *SelectProduct) AggregateID() string { return c.CartID }

// DeselectProduct 取消选购命令
//
// 目标商品必须已有净选购量，且扣减后不为负，否则返回 ProductDeselectionError。
type DeselectProduct struct {
	CartID    string
	ProductID string
	Quantity  int
}

func (c *DeselectProduct) AggregateID() string { return c.CartID }

// ConfirmOrder 确认订单命令
//
// 重复确认静默吸收：不产生事件也不报错。
type ConfirmOrder struct {
	CartID string
}

func (c *ConfirmOrder) AggregateID() string { return c.CartID }

// Package view 实现购物车读模型：由事件异步投影维护的去范式化视图
package view

import (
	"context"
	"fmt"

	"foodcart/domain"
)

// FoodCartView 购物车视图
//
// 有损的去范式化：只累计商品数量，不记录确认状态（写侧语义，保持源系统行为）。
type FoodCartView struct {
	CartID string         `json:"cart_id"`
	Items  map[string]int `json:"items"`
}

// NewFoodCartView 创建空视图行
func NewFoodCartView(cartID string) *FoodCartView {
	return &FoodCartView{
		CartID: cartID,
		Items:  make(map[string]int),
	}
}

// AddProducts 累加商品数量
func (v *FoodCartView) AddProducts(productID string, quantity int) {
	if v.Items == nil {
		v.Items = make(map[string]int)
	}
	v.Items[productID] += quantity
}

// RemoveProducts 扣减商品数量，降到零或以下时删除键
//
// 与聚合侧的零保留语义刻意不同，保持源系统的既有差异。
func (v *FoodCartView) RemoveProducts(productID string, quantity int) {
	current, ok := v.Items[productID]
	if !ok {
		return
	}
	remaining := current - quantity
	if remaining <= 0 {
		delete(v.Items, productID)
		return
	}
	v.Items[productID] = remaining
}

// Clone 深拷贝视图，内存实现用它隔离调用方
func (v *FoodCartView) Clone() *FoodCartView {
	items := make(map[string]int, len(v.Items))
	for k, q := range v.Items {
		items[k] = q
	}
	return &FoodCartView{CartID: v.CartID, Items: items}
}

// ErrViewNotFound 查询的购物车视图不存在，是合法的查询结果而非领域错误
var ErrViewNotFound = fmt.Errorf("food cart view: %w", domain.ErrEntityNotFound)

// IViewStore 视图存储接口
//
// 只有投影写入，查询路径只读。Get 未命中返回 ErrViewNotFound。
type IViewStore interface {
	Put(ctx context.Context, view *FoodCartView) error
	Get(ctx context.Context, cartID string) (*FoodCartView, error)
}

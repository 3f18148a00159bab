// Package api 提供购物车服务的 HTTP 边界：把外部请求翻译为命令与查询，不承载领域逻辑
package api

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"foodcart/cart"
	"foodcart/cart/view"
	"foodcart/errors"
	httpx "foodcart/http"
	"foodcart/http/basic"
	"foodcart/logging"
)

// FoodCartController 购物车 HTTP 控制器
//
// 写路径走命令服务，读路径只查视图存储（最终一致，命令后立刻查询
// 可能看到旧视图）。
type FoodCartController struct {
	commands *cart.FoodCartService
	views    view.IViewStore
	logger   logging.Logger
	utils    *basic.HttpUtils
}

// NewFoodCartController 创建购物车控制器
func NewFoodCartController(commands *cart.FoodCartService, views view.IViewStore, logger logging.Logger) (*FoodCartController, error) {
	if commands == nil {
		return nil, fmt.Errorf("command service cannot be nil")
	}
	if views == nil {
		return nil, fmt.Errorf("view store cannot be nil")
	}
	if logger == nil {
		logger = logging.ComponentLogger("api.foodcart")
	}
	return &FoodCartController{
		commands: commands,
		views:    views,
		logger:   logger,
		utils:    &basic.HttpUtils{},
	}, nil
}

// RegisterRoutes 注册全部路由
func (c *FoodCartController) RegisterRoutes(server httpx.IHttpServer) {
	server.POST("/foodCart/create", c.CreateFoodCart)
	server.POST("/foodCart/:cartID/select/:productID/quantity/:quantity", c.SelectProduct)
	server.POST("/foodCart/:cartID/deselect/:productID/quantity/:quantity", c.DeselectProduct)
	server.POST("/foodCart/:cartID/confirm", c.ConfirmOrder)
	server.GET("/foodCart/:cartID", c.FindFoodCart)
	server.GET("/foodCart/:cartID/events", c.GetFoodCartEvents)
}

// CreateFoodCart 创建购物车，服务端生成标识
func (c *FoodCartController) CreateFoodCart(ctx httpx.IHttpContext) error {
	cartID := uuid.NewString()
	if err := c.commands.ExecuteCommand(ctx.GetContext(), &cart.CreateFoodCart{CartID: cartID}); err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	c.logger.Info(ctx.GetContext(), "food cart created", logging.String("cart_id", cartID))
	return c.utils.WriteSuccessResponse(ctx, map[string]string{"cart_id": cartID})
}

// SelectProduct 选购商品
func (c *FoodCartController) SelectProduct(ctx httpx.IHttpContext) error {
	cartID, productID, quantity, err := c.parseProductParams(ctx)
	if err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	cmd := &cart.SelectProduct{CartID: cartID, ProductID: productID, Quantity: quantity}
	if err := c.commands.ExecuteCommand(ctx.GetContext(), cmd); err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	return c.utils.WriteSuccessResponse(ctx, nil)
}

// DeselectProduct 取消选购商品
func (c *FoodCartController) DeselectProduct(ctx httpx.IHttpContext) error {
	cartID, productID, quantity, err := c.parseProductParams(ctx)
	if err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	cmd := &cart.DeselectProduct{CartID: cartID, ProductID: productID, Quantity: quantity}
	if err := c.commands.ExecuteCommand(ctx.GetContext(), cmd); err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	return c.utils.WriteSuccessResponse(ctx, nil)
}

// ConfirmOrder 确认订单（幂等：重复确认同样返回成功）
func (c *FoodCartController) ConfirmOrder(ctx httpx.IHttpContext) error {
	cartID, err := c.requireParam(ctx, "cartID")
	if err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	if err := c.commands.ExecuteCommand(ctx.GetContext(), &cart.ConfirmOrder{CartID: cartID}); err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	return c.utils.WriteSuccessResponse(ctx, nil)
}

// FindFoodCart 查询购物车视图，不存在返回 404
func (c *FoodCartController) FindFoodCart(ctx httpx.IHttpContext) error {
	cartID, err := c.requireParam(ctx, "cartID")
	if err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	v, err := c.views.Get(ctx.GetContext(), cartID)
	if err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	return c.utils.WriteSuccessResponse(ctx, v)
}

// GetFoodCartEvents 查询购物车事件历史（分页）
func (c *FoodCartController) GetFoodCartEvents(ctx httpx.IHttpContext) error {
	cartID, err := c.requireParam(ctx, "cartID")
	if err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	listReq, err := c.utils.ParsePagination(ctx)
	if err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	page, err := c.commands.Repository().GetEventHistoryPage(ctx.GetContext(), cartID, listReq.Page, listReq.PageSize, nil)
	if err != nil {
		return c.utils.WriteErrorResponse(ctx, err)
	}
	return c.utils.WriteSuccessResponse(ctx, page)
}

func (c *FoodCartController) parseProductParams(ctx httpx.IHttpContext) (cartID, productID string, quantity int, err error) {
	cartID, err = c.requireParam(ctx, "cartID")
	if err != nil {
		return "", "", 0, err
	}
	productID, err = c.requireParam(ctx, "productID")
	if err != nil {
		return "", "", 0, err
	}
	quantityStr := ctx.GetParam("quantity")
	quantity, convErr := strconv.Atoi(quantityStr)
	if convErr != nil {
		return "", "", 0, errors.NewError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("parameter quantity must be an integer, got %q", quantityStr))
	}
	return cartID, productID, quantity, nil
}

func (c *FoodCartController) requireParam(ctx httpx.IHttpContext, name string) (string, error) {
	value := ctx.GetParam(name)
	if value == "" {
		return "", errors.NewError(errors.ErrCodeInvalidInput,
			fmt.Sprintf("parameter %s cannot be empty", name))
	}
	return value, nil
}

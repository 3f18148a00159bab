package cart

import "fmt"

// ProductDeselectionError 取消选购校验失败
//
// 唯一建模的领域校验错误：商品从未被选购，或扣减数量超过当前净选购量。
// 该错误不会向事件日志追加任何事件。
type ProductDeselectionError struct {
	CartID    string
	ProductID string
	Message   string
}

func (e *ProductDeselectionError) Error() string {
	return e.Message
}

// DomainValidation 标记为领域校验错误，参与 errors.Normalize 归一化
func (e *ProductDeselectionError) DomainValidation() {}

func newProductNeverSelectedError(cartID, productID string) *ProductDeselectionError {
	return &ProductDeselectionError{
		CartID:    cartID,
		ProductID: productID,
		Message:   "cannot deselect a product which has not been selected for this food cart",
	}
}

func newDeselectTooManyError(cartID, productID string) *ProductDeselectionError {
	return &ProductDeselectionError{
		CartID:    cartID,
		ProductID: productID,
		Message:   fmt.Sprintf("cannot deselect more products of ID [%s] than have been selected initially", productID),
	}
}

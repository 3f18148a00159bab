package errors

import (
	"context"
	"database/sql"
	stdErrors "errors"

	"foodcart/domain"
	"foodcart/eventing"
)

// IDomainValidationError 领域校验错误标记接口
//
// 领域包通过实现该接口参与错误归一化，errors 包不依赖任何具体领域包。
// 典型实现：业务不变量被破坏时返回的错误类型（如购物车中商品数量不足）。
type IDomainValidationError interface {
	error
	DomainValidation()
}

// Normalize 将任意错误归一化为带错误码的应用错误
//
// 归一化规则（按优先级）：
//  1. 已是 IError 的错误原样返回；
//  2. 乐观锁冲突 → ErrCodeConcurrency；
//  3. 聚合/实体/行不存在 → ErrCodeNotFound；
//  4. 重复写入 → ErrCodeDuplicate；
//  5. 领域校验错误（IDomainValidationError）→ ErrCodeValidation；
//  6. 上下文超时 → ErrCodeTimeout；
//  7. 其余 → ErrCodeInternal。
//
// 用于 Service/Handler 边界，使上层（HTTP、消息消费者）只需面对统一的错误码。
func Normalize(err error) IError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr
	}

	var concurrencyErr *eventing.ConcurrencyError
	if stdErrors.As(err, &concurrencyErr) {
		return WrapError(err, ErrCodeConcurrency, "optimistic concurrency conflict")
	}
	if stdErrors.Is(err, domain.ErrVersionConflict) {
		return WrapError(err, ErrCodeConcurrency, "optimistic concurrency conflict")
	}

	if stdErrors.Is(err, eventing.ErrAggregateNotFound) ||
		stdErrors.Is(err, eventing.ErrEventNotFound) ||
		stdErrors.Is(err, domain.ErrEntityNotFound) ||
		stdErrors.Is(err, sql.ErrNoRows) {
		return WrapError(err, ErrCodeNotFound, "resource not found")
	}

	var duplicateErr *eventing.EventAlreadyExistsError
	if stdErrors.As(err, &duplicateErr) || stdErrors.Is(err, domain.ErrEntityAlreadyExists) {
		return WrapError(err, ErrCodeDuplicate, "resource already exists")
	}

	var validationErr IDomainValidationError
	if stdErrors.As(err, &validationErr) {
		return WrapError(err, ErrCodeValidation, validationErr.Error())
	}

	if stdErrors.Is(err, context.DeadlineExceeded) {
		return WrapError(err, ErrCodeTimeout, "operation timed out")
	}

	return WrapError(err, ErrCodeInternal, "internal error")
}

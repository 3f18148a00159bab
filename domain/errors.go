package domain

import "fmt"

// RepositoryError 仓储层错误
//
// Code 是稳定的机器可读标识，errors 包的归一化据此映射错误码。
type RepositoryError struct {
	Code     string
	Message  string
	EntityID any
	Cause    error
}

func (e *RepositoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RepositoryError) Unwrap() error {
	return e.Cause
}

// 仓储哨兵错误，调用方用 errors.Is 匹配
var (
	ErrEntityNotFound      = &RepositoryError{Code: "ENTITY_NOT_FOUND", Message: "entity not found"}
	ErrEntityAlreadyExists = &RepositoryError{Code: "ENTITY_ALREADY_EXISTS", Message: "entity already exists"}
	ErrVersionConflict     = &RepositoryError{Code: "VERSION_CONFLICT", Message: "version conflict (optimistic lock)"}
)

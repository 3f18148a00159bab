// Package domain 定义领域层的基础接口与错误
//
// 只描述实体与领域事件的最小语义，不依赖任何基础设施包；
// 事件信封、存储与传输由 eventing 系列包承担。
package domain

// IObject 所有实体的根接口
type IObject[T comparable] interface {
	// GetID 返回对象的唯一标识
	GetID() T
}

// IEntity 带乐观锁版本号的实体
type IEntity[T comparable] interface {
	IObject[T]

	// GetVersion 返回乐观锁版本号，每次状态变更递增
	GetVersion() int64
}

// IDomainEvent 领域事件
//
// 领域层只关注事件的业务语义，EventType 返回稳定的类型标识，
// 供事件注册表路由与反序列化使用。
type IDomainEvent interface {
	EventType() string
}

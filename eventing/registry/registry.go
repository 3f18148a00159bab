// Package registry 维护事件类型到工厂函数的映射，
// 事件流从存储或消息载荷读回时据此还原为强类型负载。
package registry

import (
	"encoding/json"
	"fmt"
	"sync"
)

// EventFactory 返回事件负载的空实例，供 JSON 反序列化填充
type EventFactory func() interface{}

// Registry 事件类型注册表，注册与查询并发安全
type Registry struct {
	factories map[string]EventFactory
	mutex     sync.RWMutex
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]EventFactory),
	}
}

// Register 登记事件类型，同名类型重复登记报错
func (r *Registry) Register(eventType string, factory EventFactory) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("event factory cannot be nil for type %s", eventType)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.factories[eventType]; exists {
		return fmt.Errorf("event type already registered: %s", eventType)
	}
	if factory() == nil {
		return fmt.Errorf("event factory returned nil for type %s", eventType)
	}

	r.factories[eventType] = factory
	return nil
}

// MustRegister 登记事件类型，失败时 panic，用于启动期注册
func (r *Registry) MustRegister(eventType string, factory EventFactory) {
	if err := r.Register(eventType, factory); err != nil {
		panic(err)
	}
}

// Deserialize 按登记的工厂还原事件负载
func (r *Registry) Deserialize(eventType string, data []byte) (interface{}, error) {
	r.mutex.RLock()
	factory, exists := r.factories[eventType]
	r.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	instance := factory()
	if err := json.Unmarshal(data, instance); err != nil {
		return nil, fmt.Errorf("failed to deserialize event %s: %w", eventType, err)
	}
	return instance, nil
}

// HasEvent 判断事件类型是否已登记
func (r *Registry) HasEvent(eventType string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	_, exists := r.factories[eventType]
	return exists
}

// 进程级注册表，事件存储和桥接层读回负载时使用
var globalRegistry = NewRegistry()

// RegisterGlobal 登记到进程级注册表
func RegisterGlobal(eventType string, factory EventFactory) error {
	return globalRegistry.Register(eventType, factory)
}

// MustRegisterGlobal 登记到进程级注册表，失败时 panic
func MustRegisterGlobal(eventType string, factory EventFactory) {
	globalRegistry.MustRegister(eventType, factory)
}

// DeserializeGlobal 通过进程级注册表还原负载
func DeserializeGlobal(eventType string, data []byte) (interface{}, error) {
	return globalRegistry.Deserialize(eventType, data)
}

// HasEventGlobal 查询进程级注册表
func HasEventGlobal(eventType string) bool {
	return globalRegistry.HasEvent(eventType)
}

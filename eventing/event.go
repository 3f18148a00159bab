// Package eventing 定义事件溯源的核心抽象：事件封装、存储接口与错误类型
package eventing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"foodcart/messaging"
)

// IEvent 事件在总线上传输与路由所需的最小接口
type IEvent interface {
	messaging.IMessage

	GetAggregateID() string
	GetAggregateType() string
	GetVersion() uint64
}

// IStorableEvent 事件持久化所需的扩展接口
type IStorableEvent interface {
	IEvent

	GetSchemaVersion() int
	SetAggregateType(string)
	Validate() error
}

// Event 领域事件，同时满足传输与持久化两个接口
type Event struct {
	messaging.Message
	AggregateID   string `json:"aggregate_id"`
	AggregateType string `json:"aggregate_type"`
	Version       uint64 `json:"version"`
	SchemaVersion int    `json:"schema_version"`
}

func (e *Event) GetAggregateID() string   { return e.AggregateID }
func (e *Event) GetAggregateType() string { return e.AggregateType }
func (e *Event) GetVersion() uint64       { return e.Version }

// GetSchemaVersion 未显式赋值时按版本 1 处理
func (e *Event) GetSchemaVersion() int {
	if e.SchemaVersion <= 0 {
		return 1
	}
	return e.SchemaVersion
}

func (e *Event) SetAggregateType(t string) { e.AggregateType = t }

// Validate 入库前校验事件完整性
func (e *Event) Validate() error {
	if e.GetID() == "" {
		return fmt.Errorf("event id is required")
	}
	if e.AggregateID == "" {
		return fmt.Errorf("aggregate id is required")
	}
	if e.AggregateType == "" {
		return fmt.Errorf("aggregate type is required")
	}
	if e.GetType() == "" {
		return fmt.Errorf("event type is required")
	}
	if e.Version == 0 {
		return fmt.Errorf("event version must be positive")
	}
	if e.SchemaVersion <= 0 {
		return fmt.Errorf("schema version must be positive")
	}
	return nil
}

// NewEvent 创建事件，schemaVersion 省略时为 1
func NewEvent(aggregateID, aggregateType, eventType string, version uint64, data interface{}, schemaVersion ...int) *Event {
	sVersion := 1
	if len(schemaVersion) > 0 && schemaVersion[0] > 0 {
		sVersion = schemaVersion[0]
	}
	return &Event{
		Message: messaging.Message{
			// UUIDv7 事件ID按生成时间单调递增，配合时间戳可作为稳定重放游标
			ID:        uuid.Must(uuid.NewV7()).String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Payload:   data,
			Metadata:  make(map[string]interface{}),
		},
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       version,
		SchemaVersion: sVersion,
	}
}

// NewDomainEvent 创建来源标记为领域层的事件
func NewDomainEvent(aggregateID, aggregateType, eventType string, version uint64, data interface{}, schemaVersion ...int) *Event {
	e := NewEvent(aggregateID, aggregateType, eventType, version, data, schemaVersion...)
	metadata := e.GetMetadata()
	metadata["source"] = "domain"
	metadata["event_sourced"] = true
	return e
}

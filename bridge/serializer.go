// Package bridge 负责消息在进程边界上的序列化：
// 把 messaging.IMessage / eventing.IEvent 编码为线上格式，
// 并在接收端借助事件类型注册表还原出带类型载荷的事件。
package bridge

import (
	"encoding/json"
	"errors"
	"time"

	"foodcart/eventing"
	"foodcart/eventing/registry"
	"foodcart/messaging"
)

// ISerializer 序列化器接口
//
// 定义消息序列化/反序列化的能力。
//
// 实现：
//   - JSON（默认）
type ISerializer interface {
	// SerializeMessage 序列化任意消息（事件会携带聚合信息）
	SerializeMessage(msg messaging.IMessage) ([]byte, error)

	// DeserializeMessage 反序列化消息；事件载荷按注册表还原为具体类型
	DeserializeMessage(data []byte) (messaging.IMessage, error)

	// SerializeEvent 序列化事件
	SerializeEvent(event eventing.IEvent) ([]byte, error)

	// DeserializeEvent 反序列化事件
	DeserializeEvent(data []byte) (eventing.IEvent, error)
}

// wireEnvelope 线上信封
//
// kind 区分普通消息与领域事件；事件额外携带聚合标识与版本，
// 接收端据此重建 eventing.Event 而不是退化成 map 载荷。
type wireEnvelope struct {
	Kind          string                 `json:"kind"`
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	Timestamp     int64                  `json:"timestamp"`
	Payload       json.RawMessage        `json:"payload,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	AggregateID   string                 `json:"aggregate_id,omitempty"`
	AggregateType string                 `json:"aggregate_type,omitempty"`
	Version       uint64                 `json:"version,omitempty"`
	SchemaVersion int                    `json:"schema_version,omitempty"`
}

const (
	kindMessage = "message"
	kindEvent   = "event"
)

// JSONSerializer JSON 序列化器
//
// 默认使用 JSON 序列化，简单且兼容性好。
type JSONSerializer struct{}

// NewJSONSerializer 创建 JSON 序列化器
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// SerializeMessage 序列化任意消息
func (s *JSONSerializer) SerializeMessage(msg messaging.IMessage) ([]byte, error) {
	if msg == nil {
		return nil, ErrInvalidMessage
	}
	if evt, ok := msg.(eventing.IEvent); ok {
		return s.SerializeEvent(evt)
	}

	payload, err := json.Marshal(msg.GetPayload())
	if err != nil {
		return nil, errors.Join(ErrSerializationFailed, err)
	}
	data, err := json.Marshal(&wireEnvelope{
		Kind:      kindMessage,
		ID:        msg.GetID(),
		Type:      msg.GetType(),
		Timestamp: timestampOf(msg),
		Payload:   payload,
		Metadata:  msg.GetMetadata(),
	})
	if err != nil {
		return nil, errors.Join(ErrSerializationFailed, err)
	}
	return data, nil
}

// DeserializeMessage 反序列化消息
func (s *JSONSerializer) DeserializeMessage(data []byte) (messaging.IMessage, error) {
	envelope, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if envelope.Kind == kindEvent {
		return eventFromEnvelope(envelope)
	}

	var payload interface{}
	if len(envelope.Payload) > 0 {
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return nil, errors.Join(ErrDeserializationFailed, err)
		}
	}
	return &messaging.Message{
		ID:        envelope.ID,
		Type:      envelope.Type,
		Timestamp: time.Unix(0, envelope.Timestamp),
		Payload:   payload,
		Metadata:  metadataOf(envelope),
	}, nil
}

// SerializeEvent 序列化事件
func (s *JSONSerializer) SerializeEvent(event eventing.IEvent) ([]byte, error) {
	if event == nil {
		return nil, ErrInvalidMessage
	}

	payload, err := json.Marshal(event.GetPayload())
	if err != nil {
		return nil, errors.Join(ErrSerializationFailed, err)
	}
	envelope := &wireEnvelope{
		Kind:          kindEvent,
		ID:            event.GetID(),
		Type:          event.GetType(),
		Timestamp:     timestampOf(event),
		Payload:       payload,
		Metadata:      event.GetMetadata(),
		AggregateID:   event.GetAggregateID(),
		AggregateType: event.GetAggregateType(),
		Version:       event.GetVersion(),
	}
	if storable, ok := event.(eventing.IStorableEvent); ok {
		envelope.SchemaVersion = storable.GetSchemaVersion()
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, errors.Join(ErrSerializationFailed, err)
	}
	return data, nil
}

// DeserializeEvent 反序列化事件
func (s *JSONSerializer) DeserializeEvent(data []byte) (eventing.IEvent, error) {
	envelope, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if envelope.Kind != kindEvent {
		return nil, ErrInvalidMessage
	}
	return eventFromEnvelope(envelope)
}

func decodeEnvelope(data []byte) (*wireEnvelope, error) {
	if len(data) == 0 {
		return nil, ErrInvalidMessage
	}
	var envelope wireEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, errors.Join(ErrDeserializationFailed, err)
	}
	return &envelope, nil
}

// eventFromEnvelope 重建事件；注册过的事件类型还原出具体载荷，
// 未注册的类型退化为通用 map 载荷。
func eventFromEnvelope(envelope *wireEnvelope) (*eventing.Event, error) {
	var payload interface{}
	if len(envelope.Payload) > 0 {
		if registry.HasEventGlobal(envelope.Type) {
			typed, err := registry.DeserializeGlobal(envelope.Type, envelope.Payload)
			if err != nil {
				return nil, errors.Join(ErrDeserializationFailed, err)
			}
			payload = typed
		} else if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return nil, errors.Join(ErrDeserializationFailed, err)
		}
	}
	return &eventing.Event{
		Message: messaging.Message{
			ID:        envelope.ID,
			Type:      envelope.Type,
			Timestamp: time.Unix(0, envelope.Timestamp),
			Payload:   payload,
			Metadata:  metadataOf(envelope),
		},
		AggregateID:   envelope.AggregateID,
		AggregateType: envelope.AggregateType,
		Version:       envelope.Version,
		SchemaVersion: envelope.SchemaVersion,
	}, nil
}

func timestampOf(msg messaging.IMessage) int64 {
	ts := msg.GetTimestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.UnixNano()
}

func metadataOf(envelope *wireEnvelope) map[string]interface{} {
	if envelope.Metadata == nil {
		return make(map[string]interface{})
	}
	return envelope.Metadata
}

// Ensure JSONSerializer implements ISerializer
var _ ISerializer = (*JSONSerializer)(nil)

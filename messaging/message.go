package messaging

import (
	"time"
)

// 消息分类，用于追踪中间件区分命令与事件
const (
	MessageTypeEvent   = "event"
	MessageTypeCommand = "command"
)

// IMessage 总线上流转的最小消息形态
type IMessage interface {
	GetID() string
	GetType() string
	GetTimestamp() time.Time
	GetPayload() interface{}
	GetMetadata() map[string]interface{}
}

// Message 基础消息实现，事件等具体消息内嵌该类型
type Message struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   interface{}            `json:"payload"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

func (m *Message) GetID() string           { return m.ID }
func (m *Message) GetType() string         { return m.Type }
func (m *Message) GetTimestamp() time.Time { return m.Timestamp }
func (m *Message) GetPayload() interface{} { return m.Payload }

// GetMetadata 返回元数据，懒初始化保证调用方总能写入
func (m *Message) GetMetadata() map[string]interface{} {
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	return m.Metadata
}

// SetMetadata 写入单个元数据项
func (m *Message) SetMetadata(key string, value interface{}) {
	m.GetMetadata()[key] = value
}

// NewMessage 创建消息，时间戳取当前时间
func NewMessage(messageID, messageType string, data interface{}) *Message {
	return &Message{
		ID:        messageID,
		Type:      messageType,
		Timestamp: time.Now(),
		Payload:   data,
		Metadata:  make(map[string]interface{}),
	}
}

package bridge

import "errors"

// 序列化相关错误
var (
	// ErrInvalidMessage 无效的消息
	ErrInvalidMessage = errors.New("invalid message")

	// ErrSerializationFailed 序列化失败
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrDeserializationFailed 反序列化失败
	ErrDeserializationFailed = errors.New("deserialization failed")
)

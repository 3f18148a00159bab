package eventing

import "fmt"

// 事件存储错误码
const (
	ErrCodeStoreFailed       = "STORE_FAILED"
	ErrCodeInvalidEvent      = "INVALID_EVENT"
	ErrCodeSerializePayload  = "SERIALIZE_PAYLOAD_FAILED"
	ErrCodeSerializeMetadata = "SERIALIZE_METADATA_FAILED"
)

// EventStoreError 事件存储操作失败，携带错误码与出错事件的标识
type EventStoreError struct {
	Code      string
	Message   string
	Cause     error
	EventID   string
	EventType string
}

func (e *EventStoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EventStoreError) Unwrap() error { return e.Cause }

// NewStoreFailedError 存储层操作失败
func NewStoreFailedError(message string, cause error) *EventStoreError {
	return &EventStoreError{Code: ErrCodeStoreFailed, Message: message, Cause: cause}
}

// NewStoreFailedErrorWithEvent 存储层操作失败，附带事件标识
func NewStoreFailedErrorWithEvent(message string, cause error, eventID, eventType string) *EventStoreError {
	return &EventStoreError{Code: ErrCodeStoreFailed, Message: message, Cause: cause, EventID: eventID, EventType: eventType}
}

// NewInvalidEventError 事件校验不通过
func NewInvalidEventError(eventID, eventType, message string) *EventStoreError {
	return &EventStoreError{Code: ErrCodeInvalidEvent, Message: message, EventID: eventID, EventType: eventType}
}

// NewInvalidEventErrorWithCause 事件校验不通过，附带底层原因
func NewInvalidEventErrorWithCause(eventID, eventType, message string, cause error) *EventStoreError {
	return &EventStoreError{Code: ErrCodeInvalidEvent, Message: message, Cause: cause, EventID: eventID, EventType: eventType}
}

var (
	// ErrAggregateNotFound 聚合不存在
	ErrAggregateNotFound = &EventStoreError{Code: "AGGREGATE_NOT_FOUND", Message: "aggregate not found"}

	// ErrEventNotFound 事件不存在
	ErrEventNotFound = &EventStoreError{Code: "EVENT_NOT_FOUND", Message: "event not found"}
)

// ConcurrencyError 乐观并发冲突：期望版本与存储中的实际版本不一致。
// 该错误是冲突的最终形态，不包裹下层错误，调用方用 errors.As 识别。
type ConcurrencyError struct {
	AggregateID     string
	ExpectedVersion uint64
	ActualVersion   uint64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrency conflict: aggregate %s expected version %d, actual version %d",
		e.AggregateID, e.ExpectedVersion, e.ActualVersion)
}

func NewConcurrencyError(aggregateID string, expected, actual uint64) *ConcurrencyError {
	return &ConcurrencyError{AggregateID: aggregateID, ExpectedVersion: expected, ActualVersion: actual}
}

// EventAlreadyExistsError 同一事件被重复写入，用于唯一键冲突的幂等处理
type EventAlreadyExistsError struct {
	EventID     string
	AggregateID string
	Version     uint64
}

func (e *EventAlreadyExistsError) Error() string {
	return fmt.Sprintf("event %s already exists for aggregate %s version %d", e.EventID, e.AggregateID, e.Version)
}

func NewEventAlreadyExistsError(eventID, aggregateID string, version uint64) *EventAlreadyExistsError {
	return &EventAlreadyExistsError{EventID: eventID, AggregateID: aggregateID, Version: version}
}

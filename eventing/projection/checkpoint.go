package projection

import (
	"context"
	"errors"
	"time"
)

// Checkpoint 记录投影在事件流中处理到的位置。
// 进程重启后投影从检查点之后继续，而不是重放整个事件流。
type Checkpoint struct {
	// ProjectionName 投影名称，检查点的唯一标识
	ProjectionName string `json:"projection_name" db:"projection_name"`

	// Position 已处理事件的累计序号
	Position int64 `json:"position" db:"position"`

	// LastEventID 最后处理的事件 ID，重放时用作去重边界
	LastEventID string `json:"last_event_id" db:"last_event_id"`

	// LastEventTime 最后处理事件的发生时间
	LastEventTime time.Time `json:"last_event_time" db:"last_event_time"`

	// UpdatedAt 检查点写入时间
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ICheckpointStore 检查点持久化接口。
//
// Save 必须幂等：相同投影重复保存只覆盖位置，不产生新记录。
// Delete 对不存在的检查点不返回错误。
// SQL 实现见 SQLCheckpointStore，测试场景用 MemoryCheckpointStore。
type ICheckpointStore interface {
	// Load 读取投影的检查点，不存在时返回 ErrCheckpointNotFound
	Load(ctx context.Context, projectionName string) (*Checkpoint, error)

	// Save 写入或覆盖检查点
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Delete 删除检查点，重建投影前调用
	Delete(ctx context.Context, projectionName string) error
}

var (
	// ErrCheckpointNotFound 投影尚无检查点
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrInvalidCheckpoint 检查点缺少投影名或位置为负
	ErrInvalidCheckpoint = errors.New("invalid checkpoint")

	// ErrCheckpointStoreFailed 底层存储读写失败
	ErrCheckpointStoreFailed = errors.New("checkpoint store failed")
)

// NewCheckpoint 创建检查点，UpdatedAt 取当前时间
func NewCheckpoint(projectionName string, position int64, lastEventID string, lastEventTime time.Time) *Checkpoint {
	return &Checkpoint{
		ProjectionName: projectionName,
		Position:       position,
		LastEventID:    lastEventID,
		LastEventTime:  lastEventTime,
		UpdatedAt:      time.Now(),
	}
}

// IsValid 校验检查点是否可保存
func (c *Checkpoint) IsValid() bool {
	return c.ProjectionName != "" && c.Position >= 0
}

// Clone 返回检查点副本
func (c *Checkpoint) Clone() *Checkpoint {
	clone := *c
	return &clone
}

// Update 推进检查点位置并刷新写入时间
func (c *Checkpoint) Update(position int64, eventID string, eventTime time.Time) {
	c.Position = position
	c.LastEventID = eventID
	c.LastEventTime = eventTime
	c.UpdatedAt = time.Now()
}

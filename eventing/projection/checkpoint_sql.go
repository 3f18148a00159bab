package projection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLCheckpointStore SQL 检查点存储实现
//
// 基于 database/sql 实现检查点持久化，默认面向 SQLite。
//
// 特性：
//   - UPSERT 语义（幂等）
//   - 线程安全（依赖数据库的并发控制）
type SQLCheckpointStore struct {
	db        *sql.DB
	tableName string
}

// NewSQLCheckpointStore 创建 SQL 检查点存储
//
// 参数：
//   - db: 数据库实例
//   - tableName: 表名（默认 "projection_checkpoints"）
func NewSQLCheckpointStore(db *sql.DB, tableName string) *SQLCheckpointStore {
	if tableName == "" {
		tableName = "projection_checkpoints"
	}

	return &SQLCheckpointStore{
		db:        db,
		tableName: tableName,
	}
}

// Init 创建检查点表（若不存在）
func (s *SQLCheckpointStore) Init(ctx context.Context) error {
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		projection_name TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		last_event_id TEXT NOT NULL DEFAULT '',
		last_event_time TIMESTAMP,
		updated_at TIMESTAMP NOT NULL
	)`, s.tableName)
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Load 加载检查点
func (s *SQLCheckpointStore) Load(ctx context.Context, projectionName string) (*Checkpoint, error) {
	query := fmt.Sprintf(
		"SELECT projection_name, position, last_event_id, last_event_time, updated_at FROM %s WHERE projection_name = ?",
		s.tableName)
	row := s.db.QueryRowContext(ctx, query, projectionName)

	var checkpoint Checkpoint
	var lastEventTime sql.NullTime

	err := row.Scan(
		&checkpoint.ProjectionName,
		&checkpoint.Position,
		&checkpoint.LastEventID,
		&lastEventTime,
		&checkpoint.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrCheckpointNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrCheckpointStoreFailed, err)
	}

	if lastEventTime.Valid {
		checkpoint.LastEventTime = lastEventTime.Time
	}

	return &checkpoint, nil
}

// Save 保存检查点（使用 UPSERT 语义）
func (s *SQLCheckpointStore) Save(ctx context.Context, checkpoint *Checkpoint) error {
	if checkpoint == nil || !checkpoint.IsValid() {
		return ErrInvalidCheckpoint
	}

	// 更新 UpdatedAt
	checkpoint.UpdatedAt = time.Now()

	upsert := fmt.Sprintf(`INSERT INTO %s (projection_name, position, last_event_id, last_event_time, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (projection_name) DO UPDATE SET
			position = excluded.position,
			last_event_id = excluded.last_event_id,
			last_event_time = excluded.last_event_time,
			updated_at = excluded.updated_at`, s.tableName)

	_, err := s.db.ExecContext(ctx, upsert,
		checkpoint.ProjectionName,
		checkpoint.Position,
		checkpoint.LastEventID,
		checkpoint.LastEventTime,
		checkpoint.UpdatedAt,
	)
	if err != nil {
		return errors.Join(ErrCheckpointStoreFailed, err)
	}
	return nil
}

// Delete 删除检查点
func (s *SQLCheckpointStore) Delete(ctx context.Context, projectionName string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE projection_name = ?", s.tableName)
	if _, err := s.db.ExecContext(ctx, query, projectionName); err != nil {
		return errors.Join(ErrCheckpointStoreFailed, err)
	}

	return nil
}

// Ensure SQLCheckpointStore implements ICheckpointStore
var _ ICheckpointStore = (*SQLCheckpointStore)(nil)

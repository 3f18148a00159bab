// Package sql 提供基于 database/sql 的事件存储实现
// 默认面向 SQLite（modernc.org/sqlite），SQL 语句保持与主流方言兼容
package sql

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLEventStore 基于 database/sql 的事件存储
type SQLEventStore struct {
	db        *sql.DB
	tableName string
}

func NewSQLEventStore(db *sql.DB, tableName string) *SQLEventStore {
	if tableName == "" {
		tableName = "event_store"
	}
	return &SQLEventStore{db: db, tableName: tableName}
}

// Init 创建事件表（若不存在）
//
// 约束：
//   - id 为事件主键；
//   - (aggregate_id, version) 唯一，配合乐观锁保证同一聚合的版本不重复。
func (s *SQLEventStore) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		version INTEGER NOT NULL,
		schema_version INTEGER NOT NULL DEFAULT 1,
		timestamp TIMESTAMP NOT NULL,
		payload TEXT,
		metadata TEXT,
		UNIQUE (aggregate_id, version)
	)`, s.tableName)
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s (timestamp)`, s.tableName, s.tableName)
	_, err := s.db.ExecContext(ctx, index)
	return err
}

func (s *SQLEventStore) GetDB() *sql.DB       { return s.db }
func (s *SQLEventStore) GetTableName() string { return s.tableName }

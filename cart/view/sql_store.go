package view

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const defaultViewTableName = "food_cart_views"

// SQLViewStore 基于 database/sql 的视图存储（SQLite 方言的 UPSERT）
//
// 每个购物车一行，商品映射以 JSON 列存储。
type SQLViewStore struct {
	db        *sql.DB
	tableName string
}

// NewSQLViewStore 创建 SQL 视图存储
func NewSQLViewStore(db *sql.DB, tableName string) (*SQLViewStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle cannot be nil")
	}
	if tableName == "" {
		tableName = defaultViewTableName
	}
	return &SQLViewStore{db: db, tableName: tableName}, nil
}

// Init 创建视图表（幂等）
func (s *SQLViewStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cart_id    TEXT PRIMARY KEY,
			items      TEXT NOT NULL DEFAULT '{}',
			updated_at TIMESTAMP NOT NULL
		)`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create view table %s: %w", s.tableName, err)
	}
	return nil
}

// Put 写入或覆盖视图行
func (s *SQLViewStore) Put(ctx context.Context, v *FoodCartView) error {
	items, err := json.Marshal(v.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal view items %s: %w", v.CartID, err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (cart_id, items, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (cart_id) DO UPDATE SET
			items      = excluded.items,
			updated_at = excluded.updated_at`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query, v.CartID, string(items), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to put view %s: %w", v.CartID, err)
	}
	return nil
}

// Get 按购物车 ID 读取视图
func (s *SQLViewStore) Get(ctx context.Context, cartID string) (*FoodCartView, error) {
	query := fmt.Sprintf(`SELECT items FROM %s WHERE cart_id = ?`, s.tableName)

	var items string
	err := s.db.QueryRowContext(ctx, query, cartID).Scan(&items)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrViewNotFound
		}
		return nil, fmt.Errorf("failed to get view %s: %w", cartID, err)
	}

	v := NewFoodCartView(cartID)
	if err := json.Unmarshal([]byte(items), &v.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view items %s: %w", cartID, err)
	}
	if v.Items == nil {
		v.Items = make(map[string]int)
	}
	return v, nil
}

var _ IViewStore = (*SQLViewStore)(nil)

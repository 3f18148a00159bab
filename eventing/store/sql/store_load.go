package sql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"foodcart/eventing"
	"foodcart/eventing/registry"
	"foodcart/eventing/store"
	"foodcart/messaging"
)

var (
	_ store.IEventStore         = (*SQLEventStore)(nil)
	_ store.IAggregateInspector = (*SQLEventStore)(nil)
)

func (s *SQLEventStore) LoadEvents(ctx context.Context, aggregateID string, afterVersion uint64) ([]eventing.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE aggregate_id = ? AND version > ? ORDER BY version ASC", eventColumns, s.tableName)
	rows, err := s.db.QueryContext(ctx, query, aggregateID, afterVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *SQLEventStore) StreamEvents(ctx context.Context, from time.Time) ([]eventing.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE timestamp >= ? ORDER BY timestamp ASC, version ASC", eventColumns, s.tableName)
	rows, err := s.db.QueryContext(ctx, query, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
}

func scanEvents(rows rowScanner) ([]eventing.Event, error) {
	var events []eventing.Event
	for rows.Next() {
		evt, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, nil
}

func scanEventRow(rows rowScanner) (eventing.Event, error) {
	var (
		id, typ      string
		aggID        string
		aggType      string
		ver          uint64
		schema       int
		ts           time.Time
		payloadJSON  string
		metadataJSON string
	)
	if err := rows.Scan(&id, &typ, &aggID, &aggType, &ver, &schema, &ts, &payloadJSON, &metadataJSON); err != nil {
		return eventing.Event{}, err
	}

	payload, err := decodePayload(id, typ, payloadJSON)
	if err != nil {
		return eventing.Event{}, err
	}

	var metadata map[string]any
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return eventing.Event{}, fmt.Errorf("failed to unmarshal event metadata for id=%s, type=%s: %w", id, typ, err)
		}
	}

	return eventing.Event{
		Message: messaging.Message{
			ID:        id,
			Type:      typ,
			Timestamp: ts,
			Payload:   payload,
			Metadata:  metadata,
		},
		AggregateID:   aggID,
		AggregateType: aggType,
		Version:       ver,
		SchemaVersion: schema,
	}, nil
}

// decodePayload 优先经注册表还原强类型负载，未登记的类型退回 map 形式
func decodePayload(id, typ, payloadJSON string) (any, error) {
	if payloadJSON == "" || payloadJSON == "null" {
		return nil, nil
	}
	if registry.HasEventGlobal(typ) {
		typed, err := registry.DeserializeGlobal(typ, []byte(payloadJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize event payload for id=%s, type=%s: %w", id, typ, err)
		}
		return typed, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(payloadJSON), &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event payload for id=%s, type=%s: %w", id, typ, err)
	}
	return m, nil
}

// HasAggregate 检查聚合是否存在
func (s *SQLEventStore) HasAggregate(ctx context.Context, aggregateID string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE aggregate_id = ?", s.tableName)
	row := s.db.QueryRowContext(ctx, query, aggregateID)

	var count int64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetAggregateVersion 返回聚合当前版本，0 表示聚合不存在
func (s *SQLEventStore) GetAggregateVersion(ctx context.Context, aggregateID string) (uint64, error) {
	query := fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s WHERE aggregate_id = ?", s.tableName)
	row := s.db.QueryRowContext(ctx, query, aggregateID)

	var version uint64
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"foodcart/eventing"
	log "foodcart/logging"
)

const eventColumns = "id, type, aggregate_id, aggregate_type, version, schema_version, timestamp, payload, metadata"

// eventRow 写入前序列化好的事件行，一次准备避免事务内反复编码
type eventRow struct {
	id            string
	typ           string
	aggregateType string
	version       uint64
	schemaVersion int
	timestamp     time.Time
	payloadJSON   string
	metadataJSON  string
}

func (s *SQLEventStore) AppendEvents(ctx context.Context, aggregateID string, events []eventing.IStorableEvent, expectedVersion uint64) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eventing.NewStoreFailedError("begin transaction failed", err)
	}
	defer tx.Rollback()
	if err := s.appendEventsTx(ctx, tx, aggregateID, events, expectedVersion); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return eventing.NewStoreFailedError("commit transaction failed", err)
	}
	log.GetLogger().Info(ctx, "events appended", log.String("aggregate_id", aggregateID), log.Int("event_count", len(events)))
	return nil
}

func (s *SQLEventStore) appendEventsTx(ctx context.Context, tx *sql.Tx, aggregateID string, events []eventing.IStorableEvent, expectedVersion uint64) error {
	// 乐观锁检查必须在同一事务内完成
	currentVersion, err := s.currentVersionTx(ctx, tx, aggregateID)
	if err != nil {
		return eventing.NewStoreFailedError("query current version failed", err)
	}
	if currentVersion != expectedVersion {
		return eventing.NewConcurrencyError(aggregateID, expectedVersion, currentVersion)
	}

	rows, err := s.prepareRows(events, expectedVersion)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := s.insertRows(ctx, tx, aggregateID, rows); err != nil {
		return err
	}

	log.GetLogger().Debug(ctx, "append batch done",
		log.String("aggregate_id", aggregateID),
		log.Int("written", len(rows)),
		log.Int64("ms", time.Since(start).Milliseconds()))
	return nil
}

// prepareRows 校验并序列化整批事件，任何一条失败都放弃整批写入
func (s *SQLEventStore) prepareRows(events []eventing.IStorableEvent, expectedVersion uint64) ([]eventRow, error) {
	// 批内聚合类型必须一致，允许个别事件留空跟随批次
	aggregateType := ""
	for _, evt := range events {
		if evt.GetAggregateType() != "" {
			aggregateType = evt.GetAggregateType()
			break
		}
	}

	rows := make([]eventRow, 0, len(events))
	for idx, evt := range events {
		if evt.GetAggregateType() == "" {
			evt.SetAggregateType(aggregateType)
		} else if evt.GetAggregateType() != aggregateType {
			return nil, eventing.NewInvalidEventError(evt.GetID(), evt.GetType(), "mixed aggregate types in append batch")
		}

		wantVersion := expectedVersion + uint64(idx) + 1
		if evt.GetVersion() != wantVersion {
			return nil, eventing.NewInvalidEventError(evt.GetID(), evt.GetType(), fmt.Sprintf("event version mismatch: expected %d, got %d", wantVersion, evt.GetVersion()))
		}

		if err := evt.Validate(); err != nil {
			return nil, eventing.NewInvalidEventErrorWithCause(evt.GetID(), evt.GetType(), "event validation failed", err)
		}

		payloadJSON, err := json.Marshal(evt.GetPayload())
		if err != nil {
			return nil, &eventing.EventStoreError{Code: eventing.ErrCodeSerializePayload, Message: "serialize payload failed", Cause: err, EventID: evt.GetID(), EventType: evt.GetType()}
		}
		metadataJSON, err := json.Marshal(evt.GetMetadata())
		if err != nil {
			return nil, &eventing.EventStoreError{Code: eventing.ErrCodeSerializeMetadata, Message: "serialize metadata failed", Cause: err, EventID: evt.GetID(), EventType: evt.GetType()}
		}

		rows = append(rows, eventRow{
			id:            evt.GetID(),
			typ:           evt.GetType(),
			aggregateType: evt.GetAggregateType(),
			version:       evt.GetVersion(),
			schemaVersion: evt.GetSchemaVersion(),
			timestamp:     evt.GetTimestamp(),
			payloadJSON:   string(payloadJSON),
			metadataJSON:  string(metadataJSON),
		})
	}
	return rows, nil
}

// insertRows 整批一条 INSERT 落库；唯一键冲突时降级为逐行插入做幂等判定
func (s *SQLEventStore) insertRows(ctx context.Context, tx *sql.Tx, aggregateID string, rows []eventRow) error {
	placeholders := make([]string, len(rows))
	args := make([]interface{}, 0, len(rows)*9)
	for i, r := range rows {
		placeholders[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			r.id, r.typ, aggregateID, r.aggregateType,
			r.version, r.schemaVersion, r.timestamp,
			r.payloadJSON, r.metadataJSON,
		)
	}

	batchSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.tableName, eventColumns, strings.Join(placeholders, ","))
	_, err := tx.ExecContext(ctx, batchSQL, args...)
	if err == nil {
		return nil
	}
	if isDuplicateKeyError(err) {
		log.GetLogger().Debug(ctx, "batch insert hit duplicate key, retrying row by row", log.Int("event_count", len(rows)))
		return s.insertRowsIndividually(ctx, tx, aggregateID, rows)
	}
	return eventing.NewStoreFailedError("batch insert events failed", err)
}

// insertRowsIndividually 逐行插入：与库中完全相同的事件跳过（重试幂等），
// 同键不同内容的事件报 EventAlreadyExistsError
func (s *SQLEventStore) insertRowsIndividually(ctx context.Context, tx *sql.Tx, aggregateID string, rows []eventRow) error {
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.tableName, eventColumns)

	for _, r := range rows {
		_, err := tx.ExecContext(ctx, insertSQL, r.id, r.typ, aggregateID, r.aggregateType, r.version, r.schemaVersion, r.timestamp, r.payloadJSON, r.metadataJSON)
		if err == nil {
			continue
		}
		if isDuplicateKeyError(err) {
			if s.isSameEvent(ctx, tx, r.id, r.version, aggregateID) {
				continue
			}
			return eventing.NewEventAlreadyExistsError(r.id, aggregateID, r.version)
		}
		return eventing.NewStoreFailedErrorWithEvent("insert event failed", err, r.id, r.typ)
	}
	return nil
}

func (s *SQLEventStore) currentVersionTx(ctx context.Context, tx *sql.Tx, aggregateID string) (uint64, error) {
	var current uint64
	row := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s WHERE aggregate_id = ?", s.tableName), aggregateID)
	if err := row.Scan(&current); err != nil {
		return 0, err
	}
	return current, nil
}

func (s *SQLEventStore) isSameEvent(ctx context.Context, tx *sql.Tx, eventID string, version uint64, aggregateID string) bool {
	var existingVersion uint64
	var existingAggregateID string
	row := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT aggregate_id, version FROM %s WHERE id = ?", s.tableName), eventID)
	return row.Scan(&existingAggregateID, &existingVersion) == nil && existingVersion == version && existingAggregateID == aggregateID
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}

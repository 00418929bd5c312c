package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsconductor/toolengine/internal/types"
)

// AuditDAO provides database access for audit records
type AuditDAO struct {
	db *DB
}

// NewAuditDAO creates a new AuditDAO instance
func NewAuditDAO(db *DB) *AuditDAO {
	return &AuditDAO{db: db}
}

// Insert persists one audit record.
func (dao *AuditDAO) Insert(ctx context.Context, record types.AuditRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	payloadJSON, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO audit_records (id, trace_id, user_id, event_type, payload, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = dao.db.ExecContext(ctx, query,
		record.ID,
		record.TraceID.String(),
		record.UserID,
		string(record.EventType),
		string(payloadJSON),
		record.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.WrapError(types.AUDIT_WRITE_FAILED, "failed to insert audit record", err)
	}

	return nil
}

// ListByTrace returns all audit records for a trace id in time order.
func (dao *AuditDAO) ListByTrace(ctx context.Context, traceID types.TraceID) ([]types.AuditRecord, error) {
	query := `
		SELECT id, trace_id, user_id, event_type, payload, timestamp
		FROM audit_records
		WHERE trace_id = ?
		ORDER BY timestamp
	`

	rows, err := dao.db.QueryContext(ctx, query, traceID.String())
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to list audit records", err)
	}
	defer rows.Close()

	var records []types.AuditRecord
	for rows.Next() {
		var (
			rec         types.AuditRecord
			traceIDStr  string
			eventType   string
			payloadJSON string
			timestamp   string
		)
		if err := rows.Scan(&rec.ID, &traceIDStr, &rec.UserID, &eventType, &payloadJSON, &timestamp); err != nil {
			return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan audit record", err)
		}

		rec.TraceID = types.TraceID(traceIDStr)
		rec.EventType = types.AuditEventType(eventType)

		if err := json.Unmarshal([]byte(payloadJSON), &rec.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit payload: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse audit timestamp: %w", err)
		}
		rec.Timestamp = ts

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to iterate audit records", err)
	}

	return records, nil
}

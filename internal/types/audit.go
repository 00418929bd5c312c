package types

import (
	"fmt"
	"time"
)

// AuditEventType classifies an audit record.
type AuditEventType string

const (
	AuditEventSelection AuditEventType = "selection"
	AuditEventExecution AuditEventType = "execution"
)

// IsValid checks if the AuditEventType is a known value.
func (t AuditEventType) IsValid() bool {
	switch t {
	case AuditEventSelection, AuditEventExecution:
		return true
	default:
		return false
	}
}

// AuditRecord is an immutable event describing a selection or execution.
// Records are owned exclusively by the audit sink once enqueued and must
// not be mutated afterwards.
type AuditRecord struct {
	ID        string         `json:"id"`
	TraceID   TraceID        `json:"trace_id"`
	UserID    string         `json:"user_id,omitempty"`
	EventType AuditEventType `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewAuditRecord creates an AuditRecord with a fresh id and timestamp.
func NewAuditRecord(traceID TraceID, userID string, eventType AuditEventType, payload map[string]any) AuditRecord {
	return AuditRecord{
		ID:        NewTraceID().String(),
		TraceID:   traceID.OrNew(),
		UserID:    userID,
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks the record's required fields.
func (r AuditRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("audit record id is required")
	}
	if r.TraceID.IsZero() {
		return fmt.Errorf("audit record trace id is required")
	}
	if !r.EventType.IsValid() {
		return fmt.Errorf("invalid audit event type: %s", r.EventType)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("audit record timestamp is required")
	}
	return nil
}

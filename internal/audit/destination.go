package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/opsconductor/toolengine/internal/database"
	"github.com/opsconductor/toolengine/internal/types"
)

// Destination is a pluggable audit write target. Implementations must be
// safe for use from the single sink worker goroutine.
type Destination interface {
	// Write persists one record. Errors are logged by the sink and do not
	// stop the worker.
	Write(ctx context.Context, record types.AuditRecord) error

	// Name identifies the destination in logs and health output.
	Name() string
}

// LogDestination writes audit records as structured log events.
type LogDestination struct {
	logger *slog.Logger
}

// NewLogDestination creates a Destination emitting to logger.
func NewLogDestination(logger *slog.Logger) *LogDestination {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDestination{logger: logger}
}

func (d *LogDestination) Write(ctx context.Context, record types.AuditRecord) error {
	d.logger.Info("audit",
		"record_id", record.ID,
		"trace_id", record.TraceID.String(),
		"user_id", record.UserID,
		"event_type", string(record.EventType),
		"payload", record.Payload,
		"timestamp", record.Timestamp)
	return nil
}

func (d *LogDestination) Name() string { return "log" }

// StreamDestination writes audit records as JSON lines to a writer
// (typically stdout).
type StreamDestination struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStreamDestination creates a Destination writing JSON lines to w.
func NewStreamDestination(w io.Writer) *StreamDestination {
	return &StreamDestination{w: w}
}

func (d *StreamDestination) Write(ctx context.Context, record types.AuditRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.w.Write(append(line, '\n')); err != nil {
		return types.WrapError(types.AUDIT_WRITE_FAILED, "failed to write audit record", err)
	}
	return nil
}

func (d *StreamDestination) Name() string { return "stdout" }

// DBDestination persists audit records to the audit_records table.
type DBDestination struct {
	dao *database.AuditDAO
}

// NewDBDestination creates a Destination backed by the given database.
func NewDBDestination(db *database.DB) *DBDestination {
	return &DBDestination{dao: database.NewAuditDAO(db)}
}

func (d *DBDestination) Write(ctx context.Context, record types.AuditRecord) error {
	return d.dao.Insert(ctx, record)
}

func (d *DBDestination) Name() string { return "database" }

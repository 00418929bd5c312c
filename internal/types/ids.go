package types

import (
	"fmt"

	"github.com/google/uuid"
)

// TraceID is a request correlation identifier carried from selection through
// execution and into audit records.
type TraceID string

// NewTraceID generates a new UUID v4 trace identifier.
func NewTraceID() TraceID {
	return TraceID(uuid.New().String())
}

// ParseTraceID parses and validates a string as a trace identifier.
func ParseTraceID(s string) (TraceID, error) {
	if s == "" {
		return "", fmt.Errorf("trace id cannot be empty")
	}

	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid trace id format: %w", err)
	}

	return TraceID(parsed.String()), nil
}

// String returns the string representation of the TraceID.
func (id TraceID) String() string {
	return string(id)
}

// IsZero checks if the TraceID is empty.
func (id TraceID) IsZero() bool {
	return id == ""
}

// OrNew returns the TraceID itself when set, or a freshly generated one.
// Callers that accept an optional trace id use this to guarantee every
// operation is correlatable.
func (id TraceID) OrNew() TraceID {
	if id.IsZero() {
		return NewTraceID()
	}
	return id
}

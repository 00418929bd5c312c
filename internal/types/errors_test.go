package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *EngineError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewError(TOOL_NOT_FOUND, "tool \"nmap\" not found"),
			expected: "[TOOL_NOT_FOUND] tool \"nmap\" not found",
		},
		{
			name:     "with cause",
			err:      WrapError(DB_QUERY_FAILED, "search failed", errors.New("disk I/O error")),
			expected: "[DB_QUERY_FAILED] search failed: disk I/O error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestEngineError_Unwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	err := WrapError(CATALOG_UNREADABLE, "cannot read catalog", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestEngineError_Is_MatchesByCode(t *testing.T) {
	err := WrapError(SPEC_INVALID, "missing command template", errors.New("parse error"))

	assert.True(t, errors.Is(err, NewError(SPEC_INVALID, "any message")))
	assert.False(t, errors.Is(err, NewError(TOOL_NOT_FOUND, "any message")))
}

func TestEngineError_Is_ThroughWrapping(t *testing.T) {
	inner := NewError(SELECTOR_SOURCE_FAILED, "fts query failed")
	outer := fmt.Errorf("select: %w", inner)

	assert.True(t, errors.Is(outer, NewError(SELECTOR_SOURCE_FAILED, "")))
}

func TestNewRetryableError(t *testing.T) {
	err := NewRetryableError(DB_QUERY_FAILED, "database locked")

	assert.True(t, err.Retryable)
	assert.False(t, NewError(DB_QUERY_FAILED, "database locked").Retryable)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, RUNNER_TIMEOUT, CodeOf(NewError(RUNNER_TIMEOUT, "exceeded")))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestTraceID_OrNew(t *testing.T) {
	var zero TraceID
	generated := zero.OrNew()
	require.False(t, generated.IsZero())

	existing := NewTraceID()
	assert.Equal(t, existing, existing.OrNew())
}

func TestParseTraceID(t *testing.T) {
	id := NewTraceID()
	parsed, err := ParseTraceID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseTraceID("")
	assert.Error(t, err)

	_, err = ParseTraceID("not-a-uuid")
	assert.Error(t, err)
}

func TestHealthStatus(t *testing.T) {
	h := Healthy("all good")
	assert.True(t, h.IsHealthy())
	assert.Equal(t, HealthStateHealthy, h.State)
	assert.False(t, h.CheckedAt.IsZero())

	d := Degraded("2/3 tools healthy")
	assert.False(t, d.IsHealthy())
	assert.Equal(t, HealthStateDegraded, d.State)

	u := Unhealthy("catalog unreadable")
	assert.Equal(t, HealthStateUnhealthy, u.State)
	assert.True(t, u.State.IsValid())
	assert.False(t, HealthState("broken").IsValid())
}

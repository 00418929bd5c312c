package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() ToolSpec {
	return ToolSpec{
		Name:            "network-ping",
		Version:         "1.0.0",
		IsLatest:        true,
		Platform:        PlatformLinux,
		Category:        "network",
		Description:     "ICMP reachability probe",
		CommandTemplate: "ping -c {count} {host}",
		Parameters: []ToolParameter{
			{Name: "host", Type: ParameterTypeString, Required: true, Pattern: `^[A-Za-z0-9.\-]+$`},
			{Name: "count", Type: ParameterTypeInt, Required: false, Default: "3"},
		},
		Capabilities: []string{"network", "probe"},
	}
}

func TestToolSpec_Validate(t *testing.T) {
	require.NoError(t, validSpec().Validate())
}

func TestToolSpec_Validate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ToolSpec)
	}{
		{"missing name", func(s *ToolSpec) { s.Name = "" }},
		{"missing version", func(s *ToolSpec) { s.Version = "" }},
		{"invalid platform", func(s *ToolSpec) { s.Platform = "freebsd" }},
		{"missing template", func(s *ToolSpec) { s.CommandTemplate = "   " }},
		{"undeclared placeholder", func(s *ToolSpec) { s.CommandTemplate = "ping {target}" }},
		{"duplicate parameter", func(s *ToolSpec) {
			s.Parameters = append(s.Parameters, ToolParameter{Name: "host", Type: ParameterTypeString})
		}},
		{"invalid parameter type", func(s *ToolSpec) { s.Parameters[0].Type = "blob" }},
		{"invalid parameter pattern", func(s *ToolSpec) { s.Parameters[0].Pattern = "(unclosed" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)

			err := spec.Validate()
			require.Error(t, err)
			assert.Equal(t, SPEC_INVALID, CodeOf(err))
		})
	}
}

func TestToolSpec_PlaceholderNames(t *testing.T) {
	spec := ToolSpec{CommandTemplate: "curl -H {header} {url} -o {url}.out"}
	assert.Equal(t, []string{"header", "url"}, spec.PlaceholderNames())
}

func TestPlatform_Matches(t *testing.T) {
	assert.True(t, PlatformCrossPlatform.Matches(PlatformLinux))
	assert.True(t, PlatformLinux.Matches(PlatformLinux))
	assert.False(t, PlatformWindows.Matches(PlatformLinux))
}

func TestToolParameter_CoerceAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		param   ToolParameter
		raw     any
		want    string
		wantErr bool
	}{
		{"string passthrough", ToolParameter{Name: "text", Type: ParameterTypeString}, "hello", "hello", false},
		{"int from number", ToolParameter{Name: "count", Type: ParameterTypeInt}, 4, "4", false},
		{"int rejects text", ToolParameter{Name: "count", Type: ParameterTypeInt}, "four", "", true},
		{"float accepts string", ToolParameter{Name: "ratio", Type: ParameterTypeFloat}, "0.5", "0.5", false},
		{"bool", ToolParameter{Name: "verbose", Type: ParameterTypeBool}, true, "true", false},
		{"options accept", ToolParameter{Name: "proto", Type: ParameterTypeString, Options: []string{"tcp", "udp"}}, "udp", "udp", false},
		{"options reject", ToolParameter{Name: "proto", Type: ParameterTypeString, Options: []string{"tcp", "udp"}}, "icmp", "", true},
		{"pattern reject", ToolParameter{Name: "host", Type: ParameterTypeString, Pattern: `^[a-z]+$`}, "host;rm -rf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.param.CoerceAndValidate(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewAuditRecord(t *testing.T) {
	rec := NewAuditRecord("", "user-1", AuditEventSelection, map[string]any{"query": "restart nginx"})

	require.NoError(t, rec.Validate())
	assert.False(t, rec.TraceID.IsZero())
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestAuditRecord_Validate_Failures(t *testing.T) {
	rec := NewAuditRecord(NewTraceID(), "", AuditEventExecution, nil)

	bad := rec
	bad.EventType = "deletion"
	assert.Error(t, bad.Validate())

	bad = rec
	bad.ID = ""
	assert.Error(t, bad.Validate())
}

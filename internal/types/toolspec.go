package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Platform identifies the execution environment a tool supports.
type Platform string

const (
	PlatformLinux         Platform = "linux"
	PlatformWindows       Platform = "windows"
	PlatformDarwin        Platform = "darwin"
	PlatformCrossPlatform Platform = "cross-platform"
)

// IsValid checks if the Platform is a known value.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformLinux, PlatformWindows, PlatformDarwin, PlatformCrossPlatform:
		return true
	default:
		return false
	}
}

// Matches reports whether a tool declaring this platform can run in an
// environment identified by env. Cross-platform tools match everything.
func (p Platform) Matches(env Platform) bool {
	return p == PlatformCrossPlatform || p == env
}

// ParameterType is the type tag of a tool parameter descriptor.
type ParameterType string

const (
	ParameterTypeString ParameterType = "string"
	ParameterTypeInt    ParameterType = "int"
	ParameterTypeFloat  ParameterType = "float"
	ParameterTypeBool   ParameterType = "bool"
)

// IsValid checks if the ParameterType is a known value.
func (t ParameterType) IsValid() bool {
	switch t {
	case ParameterTypeString, ParameterTypeInt, ParameterTypeFloat, ParameterTypeBool:
		return true
	default:
		return false
	}
}

// ToolParameter describes one declared parameter of a tool: a type tag plus
// constraints, validated both at catalog load time and at call time.
type ToolParameter struct {
	Name     string        `json:"name" yaml:"name"`
	Type     ParameterType `json:"type" yaml:"type"`
	Required bool          `json:"required" yaml:"required"`
	Default  string        `json:"default,omitempty" yaml:"default,omitempty"`
	Pattern  string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Options  []string      `json:"options,omitempty" yaml:"options,omitempty"`
	Secret   bool          `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// CoerceAndValidate checks a raw value against the descriptor and returns
// its canonical string form. Type coercion accepts the native Go value or
// its string rendering.
func (p ToolParameter) CoerceAndValidate(raw any) (string, error) {
	value := fmt.Sprintf("%v", raw)

	switch p.Type {
	case ParameterTypeInt:
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return "", fmt.Errorf("parameter %q: %q is not an integer", p.Name, value)
		}
	case ParameterTypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "", fmt.Errorf("parameter %q: %q is not a number", p.Name, value)
		}
	case ParameterTypeBool:
		if _, err := strconv.ParseBool(value); err != nil {
			return "", fmt.Errorf("parameter %q: %q is not a boolean", p.Name, value)
		}
	}

	if len(p.Options) > 0 {
		found := false
		for _, opt := range p.Options {
			if value == opt {
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("parameter %q: %q is not one of [%s]", p.Name, value, strings.Join(p.Options, ", "))
		}
	}

	if p.Pattern != "" {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return "", fmt.Errorf("parameter %q: invalid validation pattern: %v", p.Name, err)
		}
		if !re.MatchString(value) {
			return "", fmt.Errorf("parameter %q: %q does not match pattern %q", p.Name, value, p.Pattern)
		}
	}

	return value, nil
}

// placeholderPattern matches {param} placeholders in command templates.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ToolSpec is a versioned, executable tool definition from the catalog.
type ToolSpec struct {
	Name             string          `json:"name" yaml:"name"`
	Version          string          `json:"version" yaml:"version"`
	IsLatest         bool            `json:"is_latest" yaml:"is_latest"`
	Platform         Platform        `json:"platform" yaml:"platform"`
	Category         string          `json:"category" yaml:"category"`
	Description      string          `json:"description" yaml:"description"`
	Parameters       []ToolParameter `json:"parameters" yaml:"parameters"`
	CommandTemplate  string          `json:"command_template" yaml:"command_template"`
	Capabilities     []string        `json:"capabilities" yaml:"capabilities"`
	RequiresApproval bool            `json:"requires_approval" yaml:"requires_approval"`
	ProductionSafe   bool            `json:"production_safe" yaml:"production_safe"`
	MaxCost          float64         `json:"max_cost" yaml:"max_cost"`
	TimeEstimateMS   int64           `json:"time_estimate_ms" yaml:"time_estimate_ms"`
	CostEstimate     float64         `json:"cost_estimate" yaml:"cost_estimate"`
}

// PlaceholderNames returns the distinct parameter names referenced by the
// command template, in first-occurrence order.
func (s ToolSpec) PlaceholderNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(s.CommandTemplate, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}

// Parameter returns the declared parameter with the given name.
func (s ToolSpec) Parameter(name string) (ToolParameter, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ToolParameter{}, false
}

// Validate checks that the spec satisfies the catalog schema: required
// fields present, parameter descriptors well formed, and every placeholder
// in the command template declared as a parameter.
func (s ToolSpec) Validate() error {
	if s.Name == "" {
		return NewError(SPEC_INVALID, "tool name is required")
	}
	if s.Version == "" {
		return NewError(SPEC_INVALID, fmt.Sprintf("tool %q: version is required", s.Name))
	}
	if !s.Platform.IsValid() {
		return NewError(SPEC_INVALID, fmt.Sprintf("tool %q: invalid platform %q", s.Name, s.Platform))
	}
	if strings.TrimSpace(s.CommandTemplate) == "" {
		return NewError(SPEC_INVALID, fmt.Sprintf("tool %q: command template is required", s.Name))
	}

	declared := make(map[string]bool, len(s.Parameters))
	for _, p := range s.Parameters {
		if p.Name == "" {
			return NewError(SPEC_INVALID, fmt.Sprintf("tool %q: parameter with empty name", s.Name))
		}
		if declared[p.Name] {
			return NewError(SPEC_INVALID, fmt.Sprintf("tool %q: duplicate parameter %q", s.Name, p.Name))
		}
		if !p.Type.IsValid() {
			return NewError(SPEC_INVALID, fmt.Sprintf("tool %q: parameter %q has invalid type %q", s.Name, p.Name, p.Type))
		}
		if p.Pattern != "" {
			if _, err := regexp.Compile(p.Pattern); err != nil {
				return NewError(SPEC_INVALID, fmt.Sprintf("tool %q: parameter %q has invalid pattern: %v", s.Name, p.Name, err))
			}
		}
		declared[p.Name] = true
	}

	for _, name := range s.PlaceholderNames() {
		if !declared[name] {
			return NewError(SPEC_INVALID, fmt.Sprintf("tool %q: template references undeclared parameter %q", s.Name, name))
		}
	}

	return nil
}

package runner

import (
	"regexp"
	"strings"

	"github.com/opsconductor/toolengine/internal/observability"
)

// redactor scrubs secret-shaped substrings from execution output before it
// leaves the runner. It combines configured secret patterns with the
// literal values of secret-tagged parameters from the current request.
type redactor struct {
	patterns []*regexp.Regexp
	literals []string
}

// newRedactor compiles the configured patterns. Invalid patterns were
// rejected by config validation; any that slip through are skipped.
func newRedactor(patterns []string) *redactor {
	r := &redactor{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, re)
	}
	return r
}

// withLiterals returns a request-scoped redactor that additionally masks
// the given literal secret values.
func (r *redactor) withLiterals(literals []string) *redactor {
	if len(literals) == 0 {
		return r
	}
	scoped := &redactor{patterns: r.patterns}
	for _, lit := range literals {
		if lit != "" {
			scoped.literals = append(scoped.literals, lit)
		}
	}
	return scoped
}

// scrub replaces all secret matches in text with the redaction marker.
// Literal parameter values are replaced first so a secret never survives
// because a pattern happened to overlap it partially.
func (r *redactor) scrub(text string) string {
	if text == "" {
		return text
	}

	for _, lit := range r.literals {
		text = strings.ReplaceAll(text, lit, observability.RedactionMarker)
	}
	for _, re := range r.patterns {
		text = re.ReplaceAllString(text, observability.RedactionMarker)
	}
	return text
}

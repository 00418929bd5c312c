package runner

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches {param} placeholders inside a template token.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// renderCommand turns a command template and validated parameter values
// into an argv slice. The template is tokenized on whitespace first and
// placeholders are substituted inside individual tokens, so a parameter
// value always stays confined to its own argv element. Commands execute
// via argv (never a shell), which makes shell metacharacters in values
// inert: the substitution cannot introduce new arguments or operators.
func renderCommand(template string, values map[string]string) ([]string, error) {
	tokens := strings.Fields(template)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty command template")
	}

	argv := make([]string, 0, len(tokens))
	var missing []string

	for _, token := range tokens {
		rendered := placeholderPattern.ReplaceAllStringFunc(token, func(match string) string {
			name := placeholderPattern.FindStringSubmatch(match)[1]
			value, ok := values[name]
			if !ok {
				missing = append(missing, name)
				return match
			}
			return value
		})
		argv = append(argv, rendered)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolved template parameters: %s", strings.Join(missing, ", "))
	}

	return argv, nil
}

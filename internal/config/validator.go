package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements Validator using go-playground/validator.
type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator instance.
func NewValidator() Validator {
	return &validatorImpl{
		validate: validator.New(),
	}
}

// Validate validates the configuration and returns detailed error messages.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validation error: %w", err)
		}

		var errorMessages []string
		for _, e := range validationErrs {
			errorMessages = append(errorMessages, formatValidationError(e))
		}

		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errorMessages, "\n  - "))
	}

	// Cross-field checks validator tags can't express.
	if cfg.Selector.MaxK < cfg.Selector.DefaultK {
		return fmt.Errorf("configuration validation failed:\n  - selector.max_k (%d) must be >= selector.default_k (%d)",
			cfg.Selector.MaxK, cfg.Selector.DefaultK)
	}

	if cfg.Runner.MaxTimeout < cfg.Runner.DefaultTimeout {
		return fmt.Errorf("configuration validation failed:\n  - runner.max_timeout (%v) must be >= runner.default_timeout (%v)",
			cfg.Runner.MaxTimeout, cfg.Runner.DefaultTimeout)
	}

	for _, pattern := range cfg.Runner.SecretPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("configuration validation failed:\n  - runner.secret_patterns entry %q is not a valid regexp: %v", pattern, err)
		}
	}

	if !cfg.Audit.AuthDisabled && cfg.Audit.SharedSecret == "" {
		return fmt.Errorf("configuration validation failed:\n  - audit.shared_secret is required unless audit.auth_disabled is true")
	}

	return nil
}

// formatValidationError converts a validator.FieldError into a readable message.
func formatValidationError(e validator.FieldError) string {
	field := strings.ToLower(e.Namespace())
	field = strings.TrimPrefix(field, "config.")

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", field, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation rule %q", field, e.Tag())
	}
}

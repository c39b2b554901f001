package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ConfigError represents a configuration error with actionable guidance.
// All error messages are lowercase following Go conventions.
//
//nolint:revive // ConfigError is intentionally named for clarity in external API usage
type ConfigError struct {
	Category string // "missing", "invalid" or "load"
	Field    string // config field path, e.g. "client.backoff.policy"
	Message  string
	Action   string
	Err      error
}

// Error implements the error interface with lowercase formatting.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Category != "" {
		parts = append(parts, fmt.Sprintf("config_%s:", e.Category))
	}
	if e.Field != "" {
		parts = append(parts, e.Field)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Action != "" {
		parts = append(parts, e.Action)
	}
	msg := strings.Join(parts, " ")
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewMissingFieldError creates an error for a required missing configuration field.
func NewMissingFieldError(field string) *ConfigError {
	return &ConfigError{
		Category: "missing",
		Field:    field,
		Message:  "required",
		Action:   fmt.Sprintf("set %s env var or add %s to config.yaml", envVarFor(field), field),
	}
}

// NewInvalidFieldError creates an error for an invalid configuration value.
func NewInvalidFieldError(field, message string) *ConfigError {
	return &ConfigError{Category: "invalid", Field: field, Message: message}
}

func newLoadError(source string, err error) *ConfigError {
	return &ConfigError{Category: "load", Field: source, Message: "could not be loaded", Err: err}
}

// fromValidationErrors converts the first validator failure into a ConfigError.
func fromValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := koanfPath(fe.Namespace())
	if fe.Tag() == "required" || fe.Tag() == "required_if" {
		return NewMissingFieldError(field)
	}
	msg := fmt.Sprintf("failed %q validation", fe.Tag())
	if fe.Param() != "" {
		msg = fmt.Sprintf("failed %q validation (%s)", fe.Tag(), fe.Param())
	}
	return NewInvalidFieldError(field, msg)
}

// koanfPath turns "Config.Client.Backoff.Policy" or
// "Config.Environments[billing].BaseURL" into a lowercase dotted path.
func koanfPath(namespace string) string {
	ns := strings.TrimPrefix(namespace, "Config.")
	ns = strings.NewReplacer("[", ".", "]", "").Replace(ns)
	return strings.ToLower(ns)
}

func envVarFor(field string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(field, ".", "_"))
}

package ir

import (
	"errors"
	"fmt"
)

// ConfigError reports a configuration problem: a malformed declaration, an
// unknown model or scope, or a request that cannot be executed safely (such
// as an update without a primary key). Configuration errors are returned
// before any row is written and are not recoverable per request.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Model is the model the error was detected on, if any.
	Model string

	// Message is a human-readable description.
	Message string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeUnknownModel indicates a model name that is not registered.
	ErrCodeUnknownModel ConfigErrorCode = "UNKNOWN_MODEL"

	// ErrCodeUnknownScope indicates an attribute scope the model does not declare.
	ErrCodeUnknownScope ConfigErrorCode = "UNKNOWN_SCOPE"

	// ErrCodeNoResolver indicates a provider without a resolver.
	ErrCodeNoResolver ConfigErrorCode = "NO_RESOLVER"

	// ErrCodeNoSynchronizer indicates a provider without a synchronizer.
	ErrCodeNoSynchronizer ConfigErrorCode = "NO_SYNCHRONIZER"

	// ErrCodeInvalidModel indicates a malformed model declaration.
	ErrCodeInvalidModel ConfigErrorCode = "INVALID_MODEL"

	// ErrCodeInvalidRelation indicates a malformed relation declaration.
	ErrCodeInvalidRelation ConfigErrorCode = "INVALID_RELATION"

	// ErrCodeMissingPrimaryKey indicates a request lacking primary key values.
	ErrCodeMissingPrimaryKey ConfigErrorCode = "MISSING_PRIMARY_KEY"

	// ErrCodeCompositeKey indicates a cascading insert into a model that does
	// not have exactly one primary key.
	ErrCodeCompositeKey ConfigErrorCode = "COMPOSITE_KEY"

	// ErrCodeInvalidQuery indicates a query that cannot be planned.
	ErrCodeInvalidQuery ConfigErrorCode = "INVALID_QUERY"

	// ErrCodeInvalidRequest indicates a malformed mutate request.
	ErrCodeInvalidRequest ConfigErrorCode = "INVALID_REQUEST"

	// ErrCodeDuplicate indicates a model or provider registered twice.
	ErrCodeDuplicate ConfigErrorCode = "DUPLICATE"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s: %s (model=%s)", e.Code, e.Message, e.Model)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(code ConfigErrorCode, model, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:    code,
		Model:   model,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsConfigError returns true if err wraps a ConfigError.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ConfigErrorCodeOf returns the code of the ConfigError wrapped by err.
func ConfigErrorCodeOf(err error) (ConfigErrorCode, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// Package errors provides structured error types and exit codes for phpbc.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess          = 0 // Success
	ExitRuntimeError     = 1 // Runtime error (runner could not be spawned, report failed, etc.)
	ExitConfigError      = 2 // Configuration error (invalid config, bad flags, etc.)
	ExitEnvironmentError = 3 // Environment error (working directory locked or missing, etc.)
)

// ErrorKind represents the type of error.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindNotFound
	KindValidation
	KindEnvironment
)

// PhpbcError is the base error type for phpbc.
type PhpbcError struct {
	Kind    ErrorKind
	Message string
	Group   string // Test group if applicable
	Cause   error  // Underlying error
}

func (e *PhpbcError) Error() string {
	msg := e.Message
	if e.Group != "" {
		msg = fmt.Sprintf("[%s] %s", e.Group, e.Message)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *PhpbcError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *PhpbcError) ExitCode() int {
	switch e.Kind {
	case KindConfig, KindValidation:
		return ExitConfigError
	case KindEnvironment:
		return ExitEnvironmentError
	default:
		return ExitRuntimeError
	}
}

// New creates a new runtime error.
func New(message string) *PhpbcError {
	return &PhpbcError{
		Kind:    KindRuntime,
		Message: message,
	}
}

// Newf creates a new runtime error with formatting.
func Newf(format string, args ...interface{}) *PhpbcError {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a new configuration error.
func Config(message string) *PhpbcError {
	return &PhpbcError{
		Kind:    KindConfig,
		Message: message,
	}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...interface{}) *PhpbcError {
	return Config(fmt.Sprintf(format, args...))
}

// Environment creates a new environment error.
func Environment(message string) *PhpbcError {
	return &PhpbcError{
		Kind:    KindEnvironment,
		Message: message,
	}
}

// Environmentf creates a new environment error with formatting.
func Environmentf(format string, args ...interface{}) *PhpbcError {
	return Environment(fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *PhpbcError {
	return &PhpbcError{
		Kind:    KindRuntime,
		Message: message,
		Cause:   err,
	}
}

// WrapKind wraps an error with additional context and an explicit kind.
func WrapKind(kind ErrorKind, err error, message string) *PhpbcError {
	return &PhpbcError{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// GroupError creates an error for a specific test group.
func GroupError(group, message string) *PhpbcError {
	return &PhpbcError{
		Kind:    KindRuntime,
		Group:   group,
		Message: message,
	}
}

// NotFound creates a not found error.
func NotFound(what, name string) *PhpbcError {
	return &PhpbcError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found: %s", what, name),
	}
}

// GetExitCode returns the exit code for an error.
// Wrapped PhpbcErrors are honored, so callers may add context with %w freely.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var pe *PhpbcError
	if errors.As(err, &pe) {
		return pe.ExitCode()
	}
	return ExitRuntimeError
}

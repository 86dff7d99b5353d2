// Package errors provides structured error handling for repaircoord with categorization,
// severity levels, and contextual information. The error types mirror the coordination
// failure taxonomy: unavailable agents, agent execution failures, unknown coordinations
// and fatal coordination errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown error type
	ErrorTypeUnknown ErrorType = iota

	// ErrorTypeValidation represents malformed input
	ErrorTypeValidation

	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration

	// ErrorTypeAgentUnavailable is raised when an expected agent was never registered
	ErrorTypeAgentUnavailable

	// ErrorTypeAgentExecution is raised when an agent call fails during fan-out
	ErrorTypeAgentExecution

	// ErrorTypeCoordinationNotFound is raised for unknown coordination ids
	ErrorTypeCoordinationNotFound

	// ErrorTypeFatalCoordination is raised outside the fan-out boundary
	ErrorTypeFatalCoordination

	// ErrorTypeTimeout represents an operation exceeding its deadline
	ErrorTypeTimeout

	// ErrorTypeLLM represents language model provider failures
	ErrorTypeLLM
)

// String returns a string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeConfiguration:
		return "configuration"
	case ErrorTypeAgentUnavailable:
		return "agent_unavailable"
	case ErrorTypeAgentExecution:
		return "agent_execution"
	case ErrorTypeCoordinationNotFound:
		return "coordination_not_found"
	case ErrorTypeFatalCoordination:
		return "fatal_coordination"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeLLM:
		return "llm"
	default:
		return "unknown"
	}
}

// Severity represents the severity level of an error
type Severity int

const (
	// SeverityLow represents warnings
	SeverityLow Severity = iota

	// SeverityMedium represents recoverable errors
	SeverityMedium

	// SeverityHigh represents errors that abort the current call
	SeverityHigh
)

// String returns a string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// coordError is the concrete structured error
type coordError struct {
	errorType   ErrorType
	severity    Severity
	message     string
	cause       error
	context     map[string]interface{}
	recoverable bool
	suggestions []string
}

// Error implements the error interface
func (e *coordError) Error() string {
	parts := []string{
		fmt.Sprintf("[%s:%s]", e.errorType, e.severity),
		e.message,
	}
	if e.cause != nil {
		parts = append(parts, "caused by: "+e.cause.Error())
	}
	return strings.Join(parts, " ")
}

// Type returns the error type
func (e *coordError) Type() ErrorType {
	return e.errorType
}

// Severity returns the error severity
func (e *coordError) Severity() Severity {
	return e.severity
}

// Cause returns the underlying cause of the error
func (e *coordError) Cause() error {
	return e.cause
}

// Context returns the error context
func (e *coordError) Context() map[string]interface{} {
	return e.context
}

// IsRecoverable returns whether the error is recoverable
func (e *coordError) IsRecoverable() bool {
	return e.recoverable
}

// Suggestions returns suggested actions to resolve the error
func (e *coordError) Suggestions() []string {
	return e.suggestions
}

// Unwrap returns the underlying error for compatibility with errors.Unwrap
func (e *coordError) Unwrap() error {
	return e.cause
}

// ErrorBuilder helps construct structured errors
type ErrorBuilder struct {
	err coordError
}

// NewError creates a new error builder
func NewError(errorType ErrorType) *ErrorBuilder {
	return &ErrorBuilder{err: coordError{
		errorType: errorType,
		severity:  SeverityMedium,
		context:   make(map[string]interface{}),
	}}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.err.message = message
	return eb
}

// WithMessagef sets the error message with formatting
func (eb *ErrorBuilder) WithMessagef(format string, args ...interface{}) *ErrorBuilder {
	eb.err.message = fmt.Sprintf(format, args...)
	return eb
}

// WithCause sets the underlying cause of the error
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.err.cause = cause
	return eb
}

// WithSeverity sets the error severity
func (eb *ErrorBuilder) WithSeverity(severity Severity) *ErrorBuilder {
	eb.err.severity = severity
	return eb
}

// WithContext adds context information
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.err.context[key] = value
	return eb
}

// WithRecoverable marks the error as recoverable
func (eb *ErrorBuilder) WithRecoverable(recoverable bool) *ErrorBuilder {
	eb.err.recoverable = recoverable
	return eb
}

// WithSuggestion adds a suggested action
func (eb *ErrorBuilder) WithSuggestion(suggestion string) *ErrorBuilder {
	eb.err.suggestions = append(eb.err.suggestions, suggestion)
	return eb
}

// Build creates the final error
func (eb *ErrorBuilder) Build() error {
	built := eb.err
	return &built
}

// ValidationError creates a validation error
func ValidationError(message string) error {
	return NewError(ErrorTypeValidation).
		WithMessage(message).
		WithSeverity(SeverityLow).
		WithRecoverable(true).
		Build()
}

// ConfigurationError creates a configuration error
func ConfigurationError(message string) error {
	return NewError(ErrorTypeConfiguration).
		WithMessage(message).
		WithSeverity(SeverityHigh).
		WithRecoverable(true).
		WithSuggestion("Check your configuration file").
		WithSuggestion("Run 'repaircoord config validate' to verify settings").
		Build()
}

// AgentUnavailableError reports an expected agent missing from the registry
func AgentUnavailableError(agent string) error {
	return NewError(ErrorTypeAgentUnavailable).
		WithMessagef("agent %s is not registered", agent).
		WithSeverity(SeverityMedium).
		WithRecoverable(true).
		WithContext("agent", agent).
		WithSuggestion(fmt.Sprintf("Register an implementation for %s", agent)).
		Build()
}

// AgentExecutionError wraps a failed agent call
func AgentExecutionError(agent string, cause error) error {
	return NewError(ErrorTypeAgentExecution).
		WithMessagef("agent %s failed", agent).
		WithCause(cause).
		WithSeverity(SeverityMedium).
		WithRecoverable(true).
		WithContext("agent", agent).
		Build()
}

// CoordinationNotFoundError reports an unknown coordination id
func CoordinationNotFoundError(id string) error {
	return NewError(ErrorTypeCoordinationNotFound).
		WithMessagef("coordination %s not found", id).
		WithSeverity(SeverityMedium).
		WithContext("coordination_id", id).
		Build()
}

// FatalCoordinationError reports a failure outside the fan-out boundary
func FatalCoordinationError(stage string, cause error) error {
	return NewError(ErrorTypeFatalCoordination).
		WithMessagef("coordination failed during %s", stage).
		WithCause(cause).
		WithSeverity(SeverityHigh).
		WithContext("stage", stage).
		Build()
}

// TimeoutError reports an operation that exceeded its deadline
func TimeoutError(operation string, timeout time.Duration) error {
	return NewError(ErrorTypeTimeout).
		WithMessagef("%s timed out after %s", operation, timeout).
		WithSeverity(SeverityMedium).
		WithRecoverable(true).
		WithContext("operation", operation).
		WithContext("timeout", timeout.String()).
		Build()
}

// LLMError wraps a language model provider failure
func LLMError(operation string, cause error) error {
	return NewError(ErrorTypeLLM).
		WithMessagef("llm %s failed", operation).
		WithCause(cause).
		WithSeverity(SeverityMedium).
		WithRecoverable(true).
		WithContext("operation", operation).
		WithSuggestion("Check provider credentials and rate limits").
		Build()
}

func asCoordError(err error) (*coordError, bool) {
	var ce *coordError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsType checks if an error, or any error it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	for err != nil {
		ce, ok := asCoordError(err)
		if !ok {
			return false
		}
		if ce.errorType == errorType {
			return true
		}
		err = ce.cause
	}
	return false
}

// IsSeverity checks if an error has a specific severity
func IsSeverity(err error, severity Severity) bool {
	if ce, ok := asCoordError(err); ok {
		return ce.severity == severity
	}
	return false
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	if ce, ok := asCoordError(err); ok {
		return ce.recoverable
	}
	return false
}

// GetSuggestions extracts suggestions from an error
func GetSuggestions(err error) []string {
	if ce, ok := asCoordError(err); ok {
		return ce.suggestions
	}
	return []string{}
}

// GetContext extracts context from an error
func GetContext(err error) map[string]interface{} {
	if ce, ok := asCoordError(err); ok {
		return ce.context
	}
	return nil
}

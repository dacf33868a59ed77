// Package errors provides centralized error definitions and error handling utilities
// for svcbind. It defines domain-specific errors, semantic error types, error
// constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - LifecycleError: a host lifecycle listener could not start
//   - RegistryError: a service descriptor could not be read or watched
//   - RoutingError: a local connection could not be routed
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewLifecycleError("host context unavailable", errors.ErrContextUnavailable).
//	    WithListener("binding")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrContextUnavailable) { ... }
//
//	var lifecycleErr *errors.LifecycleError
//	if errors.As(err, &lifecycleErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Lifecycle-related sentinel errors
var (
	// ErrContextUnavailable indicates that the host could not supply its
	// repository/metastore context when a start was requested.
	ErrContextUnavailable = New("host context unavailable")
)

// Registry-related sentinel errors
var (
	// ErrDescriptorInvalid indicates that a service descriptor failed validation.
	ErrDescriptorInvalid = New("service descriptor invalid")
	// ErrRegistryClosed indicates an operation on a stopped registry.
	ErrRegistryClosed = New("registry closed")
)

// Routing-related sentinel errors
var (
	// ErrNoLocalService indicates that no client service is published for
	// local connections.
	ErrNoLocalService = New("no local service available")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// BindError is the base interface for all svcbind errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type BindError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatPrefixed renders "<kind> [k=v, ...]: message[: cause]".
func (e *baseError) formatPrefixed(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// LifecycleError represents a failed host lifecycle transition.
// Start failures are retryable: the listener state is left as if the start
// had not happened.
//
// Example:
//
//	err := errors.NewLifecycleError("start failed", errors.ErrContextUnavailable)
//	err = err.WithListener("binding")
//	fmt.Println(err) // "lifecycle error [listener=binding]: start failed: host context unavailable"
type LifecycleError struct {
	baseError
	Listener string
}

// NewLifecycleError creates a new LifecycleError.
func NewLifecycleError(message string, cause error) *LifecycleError {
	return &LifecycleError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithListener adds the listener name to the error context.
func (e *LifecycleError) WithListener(name string) *LifecycleError {
	e.Listener = name
	return e
}

// WithSeverity sets the error severity.
func (e *LifecycleError) WithSeverity(s Severity) *LifecycleError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *LifecycleError) WithRetryable(r bool) *LifecycleError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *LifecycleError) Error() string {
	var parts []string
	if e.Listener != "" {
		parts = append(parts, fmt.Sprintf("listener=%s", e.Listener))
	}
	return e.formatPrefixed("lifecycle error", parts)
}

// Is checks if this error matches the target.
func (e *LifecycleError) Is(target error) bool {
	if _, ok := target.(*LifecycleError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RegistryError represents errors reading or watching service descriptors.
//
// Example:
//
//	err := errors.NewRegistryError("parse descriptor", yamlErr).WithPath("/srv/a.yaml")
type RegistryError struct {
	baseError
	Path      string
	ServiceID string
}

// NewRegistryError creates a new RegistryError.
func NewRegistryError(message string, cause error) *RegistryError {
	return &RegistryError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithPath adds the descriptor path to the error context.
func (e *RegistryError) WithPath(path string) *RegistryError {
	e.Path = path
	return e
}

// WithServiceID adds the service ID to the error context.
func (e *RegistryError) WithServiceID(id string) *RegistryError {
	e.ServiceID = id
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *RegistryError) WithRetryable(r bool) *RegistryError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *RegistryError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.ServiceID != "" {
		parts = append(parts, fmt.Sprintf("service=%s", e.ServiceID))
	}
	return e.formatPrefixed("registry error", parts)
}

// Is checks if this error matches the target.
func (e *RegistryError) Is(target error) bool {
	if _, ok := target.(*RegistryError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RoutingError represents a connection request that could not be routed.
//
// Example:
//
//	err := errors.NewRoutingError("local routing failed", errors.ErrNoLocalService).WithHost("localhost")
type RoutingError struct {
	baseError
	Host string
}

// NewRoutingError creates a new RoutingError.
func NewRoutingError(message string, cause error) *RoutingError {
	return &RoutingError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithHost adds the requested host to the error context.
func (e *RoutingError) WithHost(host string) *RoutingError {
	e.Host = host
	return e
}

// Error returns the formatted error message.
func (e *RoutingError) Error() string {
	var parts []string
	if e.Host != "" {
		parts = append(parts, fmt.Sprintf("host=%s", e.Host))
	}
	return e.formatPrefixed("routing error", parts)
}

// Is checks if this error matches the target.
func (e *RoutingError) Is(target error) bool {
	if _, ok := target.(*RoutingError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("service id cannot be empty")
//	err = err.WithField("id").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.formatPrefixed("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry, such as a start attempted while the host
// context was unavailable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var bindErr BindError
	if As(err, &bindErr) {
		return bindErr.IsRetryable()
	}

	return Is(err, ErrContextUnavailable)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var bindErr BindError
	if As(err, &bindErr) {
		return bindErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement BindError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var bindErr BindError
	if As(err, &bindErr) {
		return bindErr.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to bind service")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to read descriptor %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

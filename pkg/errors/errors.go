package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates that a unit received an absent payload
	ErrInvalidInput = errors.New("invalid input")

	// ErrTypeMismatch indicates that a unit's input category does not accept the chain tail's output
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrConfiguration indicates missing or invalid configuration (e.g. no source filter)
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedOperation indicates a declared unit that is not available yet
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrItemProcessing indicates that one artifact failed while running through the chain
	ErrItemProcessing = errors.New("item processing failure")

	// ErrNotFound indicates that a stored artifact or cached object does not exist
	ErrNotFound = errors.New("not found")

	// ErrNotConnected indicates that a data source is used before Open or after Close
	ErrNotConnected = errors.New("not connected")
)

// Error codes used in logs, result files and run summaries.
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeTypeMismatch         = "TYPE_MISMATCH"
	CodeConfiguration        = "CONFIGURATION_ERROR"
	CodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	CodeItemProcessing       = "ITEM_PROCESSING_FAILURE"
	CodeNotFound             = "NOT_FOUND"
	CodeNotConnected         = "NOT_CONNECTED"
	CodeTimeout              = "TIMEOUT"
	CodeCancelled            = "CANCELLED"
	CodeUnknown              = "UNKNOWN_ERROR"
)

// Error represents a structured error
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new structured error
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InvalidInput returns an ErrInvalidInput error naming the unit that rejected the payload.
func InvalidInput(unit string) error {
	return NewError(CodeInvalidInput, fmt.Sprintf("unit %q received a nil payload", unit), ErrInvalidInput)
}

// Configuration returns an ErrConfiguration error with the given message.
func Configuration(format string, args ...any) error {
	return NewError(CodeConfiguration, fmt.Sprintf(format, args...), ErrConfiguration)
}

// Unsupported returns an ErrUnsupportedOperation error for the named unit or feature.
func Unsupported(what string) error {
	return NewError(CodeUnsupportedOperation, fmt.Sprintf("%s is not available", what), ErrUnsupportedOperation)
}

// TypeMismatchError is returned by the chain builder when a unit cannot follow the current tail.
type TypeMismatchError struct {
	Expected string // category the unit accepts
	Actual   string // category the chain tail produces
	Unit     string // name of the rejected unit
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: unit %q expects %s, chain produces %s", e.Unit, e.Expected, e.Actual)
}

// Unwrap makes TypeMismatchError match ErrTypeMismatch.
func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// ItemError wraps a failure of a single artifact's run.
type ItemError struct {
	SourceID string
	Unit     string
	Err      error
}

func (e *ItemError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("item %q: %v", e.SourceID, e.Err)
	}
	return fmt.Sprintf("item %q failed in unit %q: %v", e.SourceID, e.Unit, e.Err)
}

// Unwrap returns both the processing sentinel and the cause so errors.Is matches either.
func (e *ItemError) Unwrap() []error { return []error{ErrItemProcessing, e.Err} }

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTypeMismatch checks if an error is a type mismatch error
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

// IsConfiguration checks if an error is a configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsUnsupported checks if an error is an unsupported operation error
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}

// IsItemProcessing checks if an error is a per-item processing failure
func IsItemProcessing(err error) bool {
	return errors.Is(err, ErrItemProcessing)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Package errors defines the application error taxonomy used across the
// extraction pipeline, plus the renderer for the HTTP read API.
package errors

import (
	"fmt"
)

// ErrorType classifies an AppError by the failure domain it belongs to.
type ErrorType string

const (
	ErrTypeConnection ErrorType = "CONNECTION" // simulator unreachable or session refused; fatal to the run
	ErrTypeParsing    ErrorType = "PARSING"    // malformed workbook or cost file; fatal to that file
	ErrTypeMapping    ErrorType = "MAPPING"    // inconclusive column/type lookup; recovered with fallbacks
	ErrTypeStorage    ErrorType = "STORAGE"    // relational write failure; fatal to the session
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
)

// AppError is an application error with a type, an optional cause and
// free-form context (file path, record name) so failures stay actionable.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap lets errors.Is and errors.As see through AppError.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair to the error and returns it.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new AppError.
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause}
}

// IsType reports whether err is (or wraps) an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		if app, ok := err.(*AppError); ok {
			return app.Type == errType
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// NewConnectionError creates a simulator-connection error.
func NewConnectionError(message string, cause error) *AppError {
	return New(ErrTypeConnection, message, cause)
}

// NewParsingError creates a file-parsing error.
func NewParsingError(message string, cause error) *AppError {
	return New(ErrTypeParsing, message, cause)
}

// NewMappingError creates a column/type mapping error.
func NewMappingError(message string, cause error) *AppError {
	return New(ErrTypeMapping, message, cause)
}

// NewStorageError creates a persistence error.
func NewStorageError(message string, cause error) *AppError {
	return New(ErrTypeStorage, message, cause)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return New(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *AppError {
	return New(ErrTypeConfig, message, cause)
}

// NewNotFoundError creates a not-found error for the named resource.
func NewNotFoundError(resource string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

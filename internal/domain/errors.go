// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import "errors"

// ErrorType represents the semantic category of an error
type ErrorType int

const (
	ErrorTypeValidation  ErrorType = iota // Invalid input supplied by a caller
	ErrorTypeNotFound                     // Resource not found
	ErrorTypeConflict                     // Resource already exists (locally or upstream), benign for the loops
	ErrorTypeInternal                     // Unexpected internal failure
	ErrorTypeUnavailable                  // Dependency not ready (store, connection)
	ErrorTypeProvider                     // Recording provider transport or non-2xx failure
	ErrorTypeDataShape                    // Unexpected provider payload, normalized away and only logged
	ErrorTypePersistence                  // Local write rejected, fatal to the enclosing transaction only
)

// ErrMeetingAlreadyExists is returned when a meeting for a bot was already materialized.
var ErrMeetingAlreadyExists = errors.New("meeting already exists for bot")

// DomainError represents an error with semantic type information
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error // underlying error for wrapping
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// GetErrorType returns the semantic type of an error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ErrorTypeInternal // default fallback
}

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool {
	return err != nil && GetErrorType(err) == ErrorTypeConflict
}

// IsProviderError reports whether err originated at the recording provider boundary.
func IsProviderError(err error) bool {
	return err != nil && GetErrorType(err) == ErrorTypeProvider
}

// Error constructors for different types
func NewValidationError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeValidation, Message: message, Err: errors.Join(err...)}
}

func NewNotFoundError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeNotFound, Message: message, Err: errors.Join(err...)}
}

func NewConflictError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeConflict, Message: message, Err: errors.Join(err...)}
}

func NewInternalError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeInternal, Message: message, Err: errors.Join(err...)}
}

func NewUnavailableError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeUnavailable, Message: message, Err: errors.Join(err...)}
}

func NewProviderError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeProvider, Message: message, Err: errors.Join(err...)}
}

func NewDataShapeError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypeDataShape, Message: message, Err: errors.Join(err...)}
}

func NewPersistenceError(message string, err ...error) *DomainError {
	return &DomainError{Type: ErrorTypePersistence, Message: message, Err: errors.Join(err...)}
}

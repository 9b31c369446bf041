package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies domain failures for transports.
type ErrorCode string

const (
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeInternal     ErrorCode = "INTERNAL"
)

var (
	// ErrNotFound matches any *Error carrying CodeNotFound.
	ErrNotFound = &Error{Code: CodeNotFound, Message: "not found"}
	// ErrInvalidInput matches any *Error carrying CodeInvalidInput.
	ErrInvalidInput = &Error{Code: CodeInvalidInput, Message: "invalid input"}
)

// Error standardizes report failures.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports code equality so errors.Is(err, ErrNotFound) matches any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewNotFound builds a NOT_FOUND error for the named resource.
func NewNotFound(resource string, details map[string]any) error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: details,
	}
}

// NewInvalidInput builds an INVALID_INPUT error.
func NewInvalidInput(message string, details map[string]any) error {
	return &Error{Code: CodeInvalidInput, Message: message, Details: details}
}

// WrapNotFound marks err as a NOT_FOUND failure for resource.
func WrapNotFound(resource string, err error) error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

// CodeOf returns the code carried by err, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeEmptyPool         = "EMPTY_POOL"
	ErrCodeNoTypeSelected    = "NO_TYPE_SELECTED"
	ErrCodeDuplicateQuestion = "DUPLICATE_QUESTION"
	ErrCodeRecordNotFound    = "RECORD_NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "EMPTY_POOL")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}

// NewEmptyPoolError signals that a question filter matched nothing.
func NewEmptyPoolError(category string) *AppError {
	return &AppError{
		Code:    ErrCodeEmptyPool,
		Message: fmt.Sprintf("no questions available for category %q", category),
		Status:  422,
	}
}

// NewNoTypeSelectedError signals an empty question-type filter.
func NewNoTypeSelectedError() *AppError {
	return &AppError{
		Code:    ErrCodeNoTypeSelected,
		Message: "at least one question type must be selected",
		Status:  422,
	}
}

// NewDuplicateQuestionError signals that an identical question already exists.
func NewDuplicateQuestionError(text string) *AppError {
	return &AppError{
		Code:    ErrCodeDuplicateQuestion,
		Message: fmt.Sprintf("question already exists: %s", text),
		Status:  409,
	}
}

// NewRecordNotFoundError signals a missing or already-consumed progress record.
func NewRecordNotFoundError(id string) *AppError {
	return &AppError{
		Code:    ErrCodeRecordNotFound,
		Message: fmt.Sprintf("progress record not found: %s", id),
		Status:  404,
	}
}

// NewUnauthorizedError creates a new UNAUTHORIZED error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  401,
	}
}

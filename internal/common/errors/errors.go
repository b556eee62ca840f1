package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies an error class across the binding and decision flows.
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Binding errors, all user-correctable: re-prompt with guidance.
	ErrCodeMalformedClaim ErrorCode = "MALFORMED_CLAIM"
	ErrCodeClockSkew      ErrorCode = "CLOCK_SKEW"
	ErrCodeClaimExpired   ErrorCode = "CLAIM_EXPIRED"
	ErrCodeInvalidAddress ErrorCode = "INVALID_ADDRESS"

	// Decision errors.
	ErrCodeEntitlementUnavailable ErrorCode = "ENTITLEMENT_UNAVAILABLE"
	ErrCodeConfigurationError     ErrorCode = "CONFIGURATION_ERROR"

	// Infrastructure errors.
	ErrCodeStoreError  ErrorCode = "STORE_ERROR"
	ErrCodeTelegramAPI ErrorCode = "TELEGRAM_API_ERROR"
)

// AppError is the application error type carried across component boundaries.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsBindingError reports whether the error is one the user can correct by
// resubmitting a fresh claim.
func (e *AppError) IsBindingError() bool {
	switch e.Code {
	case ErrCodeMalformedClaim, ErrCodeClockSkew, ErrCodeClaimExpired, ErrCodeInvalidAddress:
		return true
	}
	return false
}

// WithDetail attaches a structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf extracts the error code, defaulting to ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

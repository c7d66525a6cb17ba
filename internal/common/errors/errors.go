// Package errors provides standardized error handling for the verification pipeline.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation: rejected before any I/O.
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingField      ErrorCode = "MISSING_FIELD"
	ErrCodeImageDecodeFailed ErrorCode = "IMAGE_DECODE_FAILED"

	// Upstream collaborators, each failing independently.
	ErrCodeOCRInvalidParameter    ErrorCode = "OCR_INVALID_PARAMETER"
	ErrCodeOCRAnalysisFailed      ErrorCode = "OCR_ANALYSIS_FAILED"
	ErrCodeObjectStoreFailed      ErrorCode = "OBJECT_STORE_FAILED"
	ErrCodePresignerUnavailable   ErrorCode = "PRESIGNER_UNAVAILABLE"
	ErrCodeDatabaseFailed         ErrorCode = "DATABASE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	// Conflicts.
	ErrCodeDuplicateSubmission ErrorCode = "DUPLICATE_SUBMISSION"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"

	// Transient infrastructure failures; callers should retry.
	ErrCodeTransient ErrorCode = "TRANSIENT_FAILURE"

	// A rollback delete failed. Logged, never surfaced over the
	// original error it followed.
	ErrCodeCompensationFailed ErrorCode = "COMPENSATION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// Constructors
// ==========================

// NewValidationError creates a non-retryable validation error. The message
// must name the offending field so the caller can act on it.
func NewValidationError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingFieldError creates a non-retryable error naming a required field.
func NewMissingFieldError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingField,
		Message:   fmt.Sprintf("Missing required field: %s", field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewImageDecodeError creates a non-retryable error for an undecodable image payload.
func NewImageDecodeError(side string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeImageDecodeFailed,
		Message:   fmt.Sprintf("Could not decode %s image payload", side),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewOCRInvalidParameterError maps an OCR parameter rejection to a client error.
func NewOCRInvalidParameterError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeOCRInvalidParameter,
		Message:   "OCR rejected the document parameters",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewOCRAnalysisFailedError creates a retryable OCR collaborator error.
func NewOCRAnalysisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeOCRAnalysisFailed,
		Message:   "Document analysis failed, please try again",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewObjectStoreError creates a retryable object storage error.
func NewObjectStoreError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeObjectStoreFailed,
		Message:   "Object storage operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPresignerUnavailableError signals that signed URLs cannot be issued right now.
// Distinct from a generic storage failure so callers can explain the outage.
func NewPresignerUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePresignerUnavailable,
		Message:   "Signed URL service is unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDatabaseError creates a retryable relational store error.
func NewDatabaseError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseFailed,
		Message:   "Database operation failed",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDuplicateSubmissionError creates a non-retryable conflict error.
func NewDuplicateSubmissionError(controlNumber string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateSubmission,
		Message:   "A submission with this control number already exists",
		Details:   fmt.Sprintf("controlNumber: %s", controlNumber),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable state machine conflict.
func NewInvalidTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   fmt.Sprintf("Cannot transition from %s to %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable lookup failure.
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransientError wraps connectivity resets and lock-wait timeouts so the
// caller sees a retry suggestion instead of a permanent failure.
func NewTransientError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransient,
		Message:   fmt.Sprintf("Temporary failure talking to %s, please retry", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewCompensationError records a failed rollback delete. It is only ever
// logged; the original pipeline error is what the caller sees.
func NewCompensationError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompensationFailed,
		Message:   "Compensating delete failed",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// Utility functions
// ==========================

// AsStandardError unwraps err to a StandardError when possible.
func AsStandardError(err error) (*StandardError, bool) {
	var se *StandardError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Code extracts the ErrorCode from err, or empty when err is not a StandardError.
func Code(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsRetryable reports whether err suggests a retry to its caller.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// HTTPStatus maps an error to the status code the API surface should return.
// Infrastructure errors deliberately collapse to 502/503 with generic
// messages; only validation and conflict errors carry specifics.
func HTTPStatus(err error) int {
	switch Code(err) {
	case ErrCodeValidationFailed, ErrCodeMissingField, ErrCodeImageDecodeFailed, ErrCodeOCRInvalidParameter:
		return http.StatusBadRequest
	case ErrCodeDuplicateSubmission, ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodePresignerUnavailable, ErrCodeTransient:
		return http.StatusServiceUnavailable
	case ErrCodeOCRAnalysisFailed, ErrCodeObjectStoreFailed, ErrCodeDatabaseFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

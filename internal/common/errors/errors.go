// Package errors provides standardized error handling for the marketplace
// service.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Validation errors, caught before any store call.
	ErrCodeEmptyMessage     ErrorCode = "EMPTY_MESSAGE"
	ErrCodeTitleTooShort    ErrorCode = "TITLE_TOO_SHORT"
	ErrCodeNameTooShort     ErrorCode = "NAME_TOO_SHORT"
	ErrCodeMissingField     ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	ErrCodeInvalidGigID     ErrorCode = "INVALID_GIG_ID"
	ErrCodeMalformedRow     ErrorCode = "MALFORMED_ROW"

	// Permission errors: a write succeeded with zero affected rows.
	ErrCodeNoPermission ErrorCode = "NO_PERMISSION"
	ErrCodeNotOwner     ErrorCode = "NOT_OWNER"

	// Remote/transient errors from the store or its collaborators.
	ErrCodeStoreQueryFailed      ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeStoreWriteFailed      ErrorCode = "STORE_WRITE_FAILED"
	ErrCodeStoreConnectionFailed ErrorCode = "STORE_CONNECTION_FAILED"
	ErrCodeFeedDecodeFailed      ErrorCode = "FEED_DECODE_FAILED"
	ErrCodeSearchQueryFailed     ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotifySendFailed      ErrorCode = "NOTIFY_SEND_FAILED"

	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Kind classifies an error by how the caller should treat it.
type Kind string

const (
	KindValidation Kind = "validation"
	KindPermission Kind = "permission"
	KindRemote     Kind = "remote"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Kind      Kind                   `json:"kind"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// UserMessage returns the human-readable string surfaced to the viewer.
// Remote errors are passed through verbatim per the store contract.
func (e *StandardError) UserMessage() string {
	if e.Kind == KindRemote && e.Details != "" {
		return e.Details
	}
	return e.Message
}

// ==========================
// 2. Error Constructors
// ==========================

// NewEmptyMessageError reports a blank or whitespace-only message body.
func NewEmptyMessageError() *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyMessage,
		Kind:      KindValidation,
		Message:   "Message body must not be empty",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTitleTooShortError reports a gig title below the minimum length.
func NewTitleTooShortError(min int) *StandardError {
	return &StandardError{
		Code:      ErrCodeTitleTooShort,
		Kind:      KindValidation,
		Message:   fmt.Sprintf("Title must be at least %d characters", min),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNameTooShortError reports a display name below the minimum length.
func NewNameTooShortError(min int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNameTooShort,
		Kind:      KindValidation,
		Message:   fmt.Sprintf("Display name must be at least %d characters", min),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingFieldError reports a required field left empty.
func NewMissingFieldError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingField,
		Kind:      KindValidation,
		Message:   fmt.Sprintf("%s is required", field),
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRoleError reports an operation attempted with the wrong role.
func NewInvalidRoleError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRole,
		Kind:      KindValidation,
		Message:   "Operation not allowed for this role",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedRowError reports a store row that failed schema validation.
func NewMalformedRowError(collection, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedRow,
		Kind:      KindValidation,
		Message:   fmt.Sprintf("Malformed %s row rejected at store boundary", collection),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoPermissionError reports a write that affected zero rows, which the
// store contract treats as "no permission" rather than success.
func NewNoPermissionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoPermission,
		Kind:      KindPermission,
		Message:   "No permission to modify this record",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotOwnerError reports a status transition attempted by a non-owner.
func NewNotOwnerError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotOwner,
		Kind:      KindPermission,
		Message:   "Only the gig owner can change application status",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports a missing row.
func NewNotFoundError(collection, key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Kind:      KindRemote,
		Message:   fmt.Sprintf("%s not found", collection),
		Details:   fmt.Sprintf("%s: %s", collection, key),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreQueryFailedError wraps a failed store read.
func NewStoreQueryFailedError(collection string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreQueryFailed,
		Kind:      KindRemote,
		Message:   "Store query failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"collection": collection},
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreWriteFailedError wraps a failed store write.
func NewStoreWriteFailedError(collection string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreWriteFailed,
		Kind:      KindRemote,
		Message:   "Store write failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"collection": collection},
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreConnectionFailedError wraps a connection-level failure.
func NewStoreConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreConnectionFailed,
		Kind:      KindRemote,
		Message:   "Store connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFeedDecodeFailedError wraps a live feed payload that could not be decoded.
func NewFeedDecodeFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeedDecodeFailed,
		Kind:      KindRemote,
		Message:   "Live feed payload could not be decoded",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError wraps a failed gig search.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Kind:      KindRemote,
		Message:   "Gig search failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotifySendFailedError wraps a failed decision notification.
func NewNotifySendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotifySendFailed,
		Kind:      KindRemote,
		Message:   "Notification send failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"channel": channel},
		Timestamp: time.Now().UTC(),
	}
}

// internal/common/errors/classify.go
package errors

import (
	stderrors "errors"
	"time"
)

// Classify normalizes any error into a StandardError so callers always have
// a Kind and a user-facing message. Unknown errors are treated as remote:
// the store contract reports failures as human-readable strings, passed
// through verbatim.
func Classify(err error) *StandardError {
	if err == nil {
		return nil
	}

	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	return &StandardError{
		Code:      ErrCodeStoreQueryFailed,
		Kind:      KindRemote,
		Message:   "Remote operation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsKind reports whether err classifies into the given Kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return Classify(err).Kind == kind
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code == ErrCodeNotFound
	}
	return false
}

// UserMessage extracts the string surfaced to the viewer for any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err).UserMessage()
}

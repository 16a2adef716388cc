// Package errors defines the structured error taxonomy for memory store
// operations. Every error that crosses a package boundary carries a code so
// the HTTP layer can map it to a status without string matching.
package errors

import (
	"fmt"

	stderrors "errors"
)

// ErrorCode represents a specific error type for store operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid caller input. Never retried.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeBackendUnavailable indicates a network-level failure reaching the
	// remote vector backend. Triggers the one-time fallback switchover.
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// ErrCodeBackendOperationFailed indicates the remote backend was reachable
	// but rejected the operation. Not retried.
	ErrCodeBackendOperationFailed ErrorCode = "BACKEND_OPERATION_FAILED"
	// ErrCodeStorageWriteFailed indicates an I/O failure in the local fallback tier.
	ErrCodeStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED"
	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed ErrorCode = "EMBEDDING_FAILED"
	// ErrCodeTranscriptionFailed indicates upstream speech-to-text failed or
	// produced no transcript.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeAnalysisFailed indicates the vision collaborator failed.
	ErrCodeAnalysisFailed ErrorCode = "ANALYSIS_FAILED"
)

// StoreError represents a structured error for memory store operations.
type StoreError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *StoreError {
	return &StoreError{Code: ErrCodeInvalidArgument, Message: msg}
}

// BackendUnavailable creates a backend unavailable error.
func BackendUnavailable(msg string, cause error) *StoreError {
	return &StoreError{Code: ErrCodeBackendUnavailable, Message: msg, Cause: cause}
}

// BackendOperationFailed creates a backend operation failed error.
func BackendOperationFailed(msg string, cause error) *StoreError {
	return &StoreError{Code: ErrCodeBackendOperationFailed, Message: msg, Cause: cause}
}

// StorageWriteFailed creates a local storage write failure error.
func StorageWriteFailed(msg string, cause error) *StoreError {
	return &StoreError{Code: ErrCodeStorageWriteFailed, Message: msg, Cause: cause}
}

// EmbeddingFailed creates an embedding generation failure error.
func EmbeddingFailed(cause error) *StoreError {
	return &StoreError{Code: ErrCodeEmbeddingFailed, Message: "failed to generate embedding", Cause: cause}
}

// TranscriptionFailed creates a transcription failure error.
func TranscriptionFailed(msg string) *StoreError {
	return &StoreError{Code: ErrCodeTranscriptionFailed, Message: msg}
}

// IsCode reports whether err (or any error in its chain) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var storeErr *StoreError
	if stderrors.As(err, &storeErr) {
		return storeErr.Code == code
	}
	return false
}

// CodeOf extracts the error code from any error, or empty if uncoded.
func CodeOf(err error) ErrorCode {
	var storeErr *StoreError
	if stderrors.As(err, &storeErr) {
		return storeErr.Code
	}
	return ""
}

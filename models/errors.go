package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeFetchFailed   = "FETCH_FAILED"
	ErrCodeDecodeFailed  = "DECODE_FAILED"
	ErrCodeStorageFailed = "STORAGE_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ArchiveError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ArchiveError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// NewArchiveError creates a new ArchiveError.
func NewArchiveError(code, message string, err error) *ArchiveError {
	return &ArchiveError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ArchiveError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// CodeOf returns the code of the first ArchiveError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var ae *ArchiveError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeInternal
}

// DetailOf converts any error into an ErrorDetail.
func DetailOf(err error) *ErrorDetail {
	var ae *ArchiveError
	if errors.As(err, &ae) {
		return ae.ToDetail()
	}
	return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
}

package model

import "fmt"

// ErrorCode identifies a stable pipeline failure kind.
type ErrorCode string

const (
	CodeAuth             ErrorCode = "AUTH"
	CodeEmptyReport      ErrorCode = "EMPTY_REPORT"
	CodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeUpstream         ErrorCode = "UPSTREAM"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrAuth             = &Error{Code: CodeAuth, Message: "authorization failed"}
	ErrEmptyReport      = &Error{Code: CodeEmptyReport, Message: "no data"}
	ErrInsufficientData = &Error{Code: CodeInsufficientData, Message: "not enough history"}
	ErrTimeout          = &Error{Code: CodeTimeout, Message: "request timed out", Retryable: true}
	ErrUpstream         = &Error{Code: CodeUpstream, Message: "upstream request failed"}
)

// Error is a structured pipeline error.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on code so callers can test against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsRetryable returns whether the caller may retry the request.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError builds an Error of the given kind. Timeouts are always retryable.
func NewError(code ErrorCode, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Retryable: code == CodeTimeout, Cause: cause}
}

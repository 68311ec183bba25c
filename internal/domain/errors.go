package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Subsystem errors wrap one of these so callers can
// branch with errors.Is regardless of which backend produced the failure.
var (
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
)

// Sentinel errors for the domain layer.
var (
	ErrToolNotFound = fmt.Errorf("tool not found")
	ErrRateLimit    = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid  = fmt.Errorf("authentication failed")
	ErrCircuitOpen  = fmt.Errorf("circuit open")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "SearchAdapter.Search")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
// Nothing in this module retries; the flag is surfaced to the calling agent.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrCircuitOpen)
}

// ErrorCode is a machine-parseable error category for API responses and metrics.
type ErrorCode string

const (
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeProviderError ErrorCode = "PROVIDER_ERROR"
	CodeToolNotFound  ErrorCode = "TOOL_NOT_FOUND"
	CodeRateLimit     ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid   ErrorCode = "AUTH_INVALID"
	CodeCircuitOpen   ErrorCode = "CIRCUIT_OPEN"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrTimeout:       CodeTimeout,
	ErrInvalidInput:  CodeInvalidInput,
	ErrProviderError: CodeProviderError,
	ErrToolNotFound:  CodeToolNotFound,
	ErrRateLimit:     CodeRateLimit,
	ErrAuthInvalid:   CodeAuthInvalid,
	ErrCircuitOpen:   CodeCircuitOpen,
}

// codePriority orders the chain walk so that specific sentinels win over the
// category sentinels they are usually wrapped together with.
var codePriority = []error{
	ErrRateLimit,
	ErrAuthInvalid,
	ErrCircuitOpen,
	ErrToolNotFound,
	ErrTimeout,
	ErrInvalidInput,
	ErrProviderError,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	for _, sentinel := range codePriority {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}

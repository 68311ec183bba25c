package tool

import (
	"context"
	"errors"
	"strings"

	"searchforge/internal/domain"
)

// retryablePatterns are substrings in error messages that indicate transient
// transport failures. Checked case-insensitively.
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"temporarily unavailable",
	"service unavailable",
}

// classifyToolError returns true if the error is transient and the tool call
// may succeed on retry. Returns false for nil, permanent, or unknown errors.
func classifyToolError(err error) bool {
	if err == nil {
		return false
	}

	// Caller input is never worth repeating verbatim.
	if errors.Is(err, domain.ErrInvalidInput) {
		return false
	}

	var re *RetrievalError
	if errors.As(err, &re) {
		return re.Transient()
	}

	if domain.IsRetryableError(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// String-based fallback for transport errors without sentinel wrapping.
	lower := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

package tool

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"searchforge/internal/domain"
)

// RetrievalError reports a non-200 response from a search endpoint. It aborts
// the whole search call.
type RetrievalError struct {
	Backend    string
	Query      string
	StatusCode int
	Reason     string
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to fetch search results for %q from %s: HTTP %d %s",
		e.Query, e.Backend, e.StatusCode, e.Reason)
}

// Unwrap exposes the domain categories of the failure so callers can use
// errors.Is(err, domain.ErrRateLimit) and friends.
func (e *RetrievalError) Unwrap() []error {
	errs := []error{domain.ErrProviderError}
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		errs = append(errs, domain.ErrRateLimit)
	case http.StatusUnauthorized, http.StatusForbidden:
		errs = append(errs, domain.ErrAuthInvalid)
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		errs = append(errs, domain.ErrTimeout)
	}
	return errs
}

// Transient reports whether the same request may succeed later.
func (e *RetrievalError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func newRetrievalError(backend, query string, resp *http.Response) *RetrievalError {
	return &RetrievalError{
		Backend:    backend,
		Query:      query,
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
	}
}

// reasonPhrase extracts the reason from resp.Status ("500 Internal Server
// Error"), falling back to the standard text for the code.
func reasonPhrase(resp *http.Response) string {
	if r := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); r != "" {
		return r
	}
	return http.StatusText(resp.StatusCode)
}

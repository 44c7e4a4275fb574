package client

import (
	"errors"
	"fmt"
)

// Remote error reason strings. The JSON error field is the canonical signal;
// HTTP status codes are the documented fallback mapping.
const (
	ReasonRateLimited    = "rate_limited"
	ReasonQuotaExhausted = "quota_exhausted"
)

// APIError carries the remote failure signal back to the dispatcher so the
// quota tracker can classify it.
type APIError struct {
	// StatusCode is the HTTP status of the failed call.
	StatusCode int
	// Reason is the remote JSON error field, when present.
	Reason string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("remote error: %s (status %d)", e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("remote error: status %d", e.StatusCode)
}

// AsAPIError unwraps err into an APIError if one is present.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

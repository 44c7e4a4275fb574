// Package quota tracks remote call budget usage and classifies remote
// failure signals.
package quota

import (
	"net/http"

	"github.com/openshelf/bookharvest/internal/client"
)

// Class is the dispatcher-facing classification of a remote response.
type Class int

// Classification outcomes, from most to least benign.
const (
	ClassOK Class = iota
	// ClassRateLimited is transient: skip the one item and continue.
	ClassRateLimited
	// ClassQuotaExhausted is fatal for the run: flush and stop dispatching.
	ClassQuotaExhausted
	ClassOtherError
)

// String implements fmt.Stringer for log fields.
func (c Class) String() string {
	switch c {
	case ClassOK:
		return "ok"
	case ClassRateLimited:
		return "rate_limited"
	case ClassQuotaExhausted:
		return "quota_exhausted"
	default:
		return "other_error"
	}
}

// Classify maps a remote response to a Class. The JSON error field string is
// the canonical signal; the HTTP status mapping (429 -> rate limited,
// 403 -> quota exhausted, other non-2xx -> other error) is the documented
// fallback for responses without a usable body.
func Classify(status int, reason string) Class {
	switch reason {
	case client.ReasonRateLimited:
		return ClassRateLimited
	case client.ReasonQuotaExhausted:
		return ClassQuotaExhausted
	}
	switch {
	case status >= 200 && status < 300:
		return ClassOK
	case status == http.StatusTooManyRequests:
		return ClassRateLimited
	case status == http.StatusForbidden:
		return ClassQuotaExhausted
	default:
		return ClassOtherError
	}
}

// ClassifyError maps a call error to a Class. A nil error is ClassOK;
// transport and local errors without a remote signal are ClassOtherError.
func ClassifyError(err error) Class {
	if err == nil {
		return ClassOK
	}
	if apiErr, ok := client.AsAPIError(err); ok {
		return Classify(apiErr.StatusCode, apiErr.Reason)
	}
	return ClassOtherError
}

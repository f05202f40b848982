package strava

import (
	"errors"
	"fmt"
	"net/http"
)

// MaxErrorBodySize is the maximum size of error body to include in error messages
const MaxErrorBodySize = 500

// APIError is a non-2xx response from the provider. Status code 429 marks a
// rate-limit rejection and 403 an insufficient OAuth scope; the queue layer
// keys retry policy off these.
type APIError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("strava API error %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("strava API error %d", e.StatusCode)
}

// IsRateLimited reports whether err is a provider 429.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsScopeInsufficient reports whether err is a provider 403.
func IsScopeInsufficient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

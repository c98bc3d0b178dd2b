package retry

import (
	"errors"
	"net/http"
	"strings"
)

// StatusError is a failure carrying an HTTP-ish status code from one of the
// external collaborators (session provider, record store, text generator).
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// IsRateLimited reports whether err is a rate-limit response: HTTP 429 or a
// "rate limit" message from the provider.
func IsRateLimited(err error) bool {
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "rate limit")
}

// IsAuthExpired reports whether err is a transient auth failure: HTTP 401
// or an expired-token message. Ledger reads retry these; a refreshed token
// usually clears them.
func IsAuthExpired(err error) bool {
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "expired")
}

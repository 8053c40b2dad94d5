package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoProfile is returned when a user has no stored profile. User-initiated
// actions surface it as a "complete your profile first" message.
var ErrNoProfile = errors.New("profile not found")

// HTTPError wraps an HTTP status code so callers can distinguish marketplace
// rejections from transport failures. RetryAfter is populated from a
// Retry-After header when the marketplace throttles the request.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

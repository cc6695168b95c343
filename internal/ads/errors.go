// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ads

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors reported by the resolver. They are carried in Resolution.Err and
// can be matched with errors.Is.
var (
	// ErrNoIdentifier indicates there was nothing to query ADS with.
	ErrNoIdentifier = errors.New("no identifier to query ADS with")

	// ErrNotFound indicates ADS matched no record.
	ErrNotFound = errors.New("no matching ADS record")

	// ErrNoLinks indicates the ADS record lists no document sources.
	ErrNoLinks = errors.New("ADS record lists no document sources")

	// ErrAuth indicates a missing or rejected API token.
	ErrAuth = errors.New("ADS authentication error")

	// ErrRateLimited indicates the daily or per-second quota was exceeded.
	ErrRateLimited = errors.New("ADS rate limit exceeded")

	// ErrInvalidResponse indicates a response body that could not be decoded.
	ErrInvalidResponse = errors.New("invalid response from ADS")
)

// APIError is a non-200 response from the ADS API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ADS API returned HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ADS API returned HTTP %d", e.StatusCode)
}

// Unwrap maps well-known statuses onto the sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return nil
	}
}

// IsAuthError reports whether err was caused by a missing or invalid token.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsRateLimited reports whether err was caused by exceeding the ADS quota.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

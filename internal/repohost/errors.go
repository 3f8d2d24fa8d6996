package repohost

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the requested file does not exist. A missing
	// directory is not an error; see Client.ListDirectory.
	ErrNotFound = errors.New("not found")
	// ErrAccessForbidden covers authentication and permission failures
	// (401 and non-rate-limit 403 responses).
	ErrAccessForbidden = errors.New("access forbidden")
)

// RateLimitError is a quota-exhausted 403, distinguished from a permission
// 403 by the remaining-quota header. Reset is when the quota renews.
type RateLimitError struct {
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return "API rate limit exceeded"
	}
	return fmt.Sprintf("API rate limit exceeded, resets at %s", e.Reset.UTC().Format(time.RFC3339))
}

// TransportError covers network failures and any unmapped non-2xx status.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repository request failed: %v", e.Err)
	}
	return fmt.Sprintf("repository request failed with status %d", e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

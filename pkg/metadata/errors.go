package metadata

import (
	"errors"
	"fmt"
	"time"
)

// AuthenticationError means a platform rejected our credentials or scopes.
// It is never retried.
type AuthenticationError struct {
	Platform string
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Platform, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// IsAuthenticationError reports whether err is an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// NotFoundError means the requested resource does not exist on the platform.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Resource, e.Err)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// IsNotFoundError reports whether err is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// ValidationMismatchError means a pre-flight check failed. Checks that only
// guard against operator mistakes may be overridden; reachability may not.
type ValidationMismatchError struct {
	Check  string
	Reason string
}

func (e *ValidationMismatchError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Check, e.Reason)
}

// IsValidationMismatchError reports whether err is a ValidationMismatchError.
func IsValidationMismatchError(err error) bool {
	var target *ValidationMismatchError
	return errors.As(err, &target)
}

// RateLimitError means the destination exhausted its request quota. ResetAt
// carries the platform-announced end of the current window when known.
type RateLimitError struct {
	ResetAt time.Time
	Err     error
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("rate limited: %v", e.Err)
	}
	return fmt.Sprintf("rate limited until %s: %v", e.ResetAt.Format(time.RFC3339), e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimitError reports whether err is a RateLimitError.
func IsRateLimitError(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// TransientError is a failure worth retrying, such as a 5xx response or a
// transport error.
type TransientError struct {
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transient error: %v", e.Err)
	}
	return fmt.Sprintf("transient error (status %d): %v", e.StatusCode, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransientError reports whether err is a TransientError.
func IsTransientError(err error) bool {
	var target *TransientError
	return errors.As(err, &target)
}

// PermanentError is a write failure that retrying cannot fix, such as a
// validation rejection by the platform. The import records it and moves on.
type PermanentError struct {
	StatusCode int
	Err        error
}

func (e *PermanentError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("permanent error: %v", e.Err)
	}
	return fmt.Sprintf("permanent error (status %d): %v", e.StatusCode, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanentError reports whether err is a PermanentError.
func IsPermanentError(err error) bool {
	var target *PermanentError
	return errors.As(err, &target)
}

package inspect

import (
	"errors"
	"fmt"
)

// Common errors returned by the inspector.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrNotNetlify is returned when the inspected site is not served by Netlify.
	ErrNotNetlify = errors.New("this tool can only be used with Netlify sites")
)

// ErrorClass represents a classification of inspection failures.
type ErrorClass string

const (
	// ErrorClassInvalidURL represents URLs that cannot be fetched.
	ErrorClassInvalidURL ErrorClass = "invalid_url"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassNotNetlify represents responses from servers other than Netlify.
	ErrorClassNotNetlify ErrorClass = "not_netlify"
)

// InspectError is an inspection failure with its classification.
type InspectError struct {
	Class ErrorClass
	URL   string
	Err   error
}

// Error implements the error interface.
func (e *InspectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inspect %s: %s error: %v", e.URL, e.Class, e.Err)
	}
	return fmt.Sprintf("inspect %s: %s error", e.URL, e.Class)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *InspectError) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of an *InspectError anywhere in err's chain, or
// "" when there is none.
func ClassOf(err error) ErrorClass {
	var ierr *InspectError
	if errors.As(err, &ierr) {
		return ierr.Class
	}
	return ""
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassNetwork:
		return true
	case ErrorClassInvalidURL, ErrorClassNotNetlify:
		// the answer will not change
		return false
	default:
		return false
	}
}

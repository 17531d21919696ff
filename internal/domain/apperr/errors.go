// Package apperr defines the closed set of error kinds returned by the
// attendance core. Callers classify errors with errors.Is or KindOf.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation is returned for malformed or out-of-policy input
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization is returned when the actor may not act on the target
	ErrAuthorization = errors.New("not authorized")

	// ErrWindowClosed is returned when a billing correction falls outside the editable window
	ErrWindowClosed = errors.New("correction window closed")

	// ErrNotFound is returned when a required record does not exist
	ErrNotFound = errors.New("not found")

	// ErrStale is returned when a record changed between read and write.
	// It also matches ErrValidation.
	ErrStale = &staleError{}
)

type staleError struct{}

func (e *staleError) Error() string { return "record was modified concurrently" }

func (e *staleError) Is(target error) bool { return target == ErrValidation }

// Kind names an error category for transport layers
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindWindowClosed  Kind = "window_closed"
	KindNotFound      Kind = "not_found"
	KindInternal      Kind = "internal"
)

// KindOf classifies err; anything outside the taxonomy is KindInternal
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWindowClosed):
		return KindWindowClosed
	case errors.Is(err, ErrAuthorization):
		return KindAuthorization
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}

// Validation builds an error wrapping ErrValidation
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Authorization builds an error wrapping ErrAuthorization
func Authorization(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

// NotFound builds an error wrapping ErrNotFound
func NotFound(entity string, key interface{}) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, entity, key)
}

// WindowClosedError carries the editable range in force when the request was refused
type WindowClosedError struct {
	Date        time.Time
	AllowedFrom time.Time
	AllowedTo   time.Time
	Reason      string
}

func (e *WindowClosedError) Error() string {
	return fmt.Sprintf("%s: %s cannot be corrected; corrections are open for %s through %s (%s)",
		ErrWindowClosed, e.Date.Format("2006-01-02"),
		e.AllowedFrom.Format("2006-01-02"), e.AllowedTo.Format("2006-01-02"), e.Reason)
}

// Is makes errors.Is(err, ErrWindowClosed) succeed
func (e *WindowClosedError) Is(target error) bool {
	return target == ErrWindowClosed
}

package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Error annotates a Google API failure with the store operation and a coarse class.
type Error struct {
	op          string
	err         error
	code        int
	notFound    bool
	denied      bool
	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Code returns the HTTP status reported by the API, or 0.
func (e *Error) Code() int { return e.code }

// IsNotFound reports a missing spreadsheet, sheet or file.
func (e *Error) IsNotFound() bool { return e != nil && e.notFound }

// IsPermissionDenied reports rejected credentials or missing sharing.
func (e *Error) IsPermissionDenied() bool { return e != nil && e.denied }

// IsUnavailable reports quota exhaustion or a transient backend outage.
func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }

// WrapError classifies err for op. Context cancellation passes through unchanged.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}

	wrapped := &Error{op: op, err: err}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		wrapped.code = apiErr.Code
		switch apiErr.Code {
		case http.StatusNotFound:
			wrapped.notFound = true
		case http.StatusUnauthorized, http.StatusForbidden:
			wrapped.denied = true
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wrapped.unavailable = true
		}
	}
	return wrapped
}

// IsNotFound reports whether err wraps a not-found store error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsNotFound()
}

// IsPermissionDenied reports whether err wraps a permission store error.
func IsPermissionDenied(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsPermissionDenied()
}

// IsUnavailable reports whether err wraps a transient store error.
func IsUnavailable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsUnavailable()
}

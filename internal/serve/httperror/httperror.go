// Package httperror renders API errors as JSON.
package httperror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// HTTPError is an error with an HTTP status. It renders as {"error": msg}
// or, for validation failures, {"errors": [...]}.
type HTTPError struct {
	StatusCode int      `json:"-"`
	Message    string   `json:"error,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	// Err wraps the original error, if any.
	Err error `json:"-"`
}

// ReportErrorFunc reports unexpected errors.
type ReportErrorFunc func(ctx context.Context, err error, msg string)

var reportErrorFunc ReportErrorFunc = func(ctx context.Context, err error, msg string) {
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	logrus.WithContext(ctx).Errorf("%+v", err)
}

// SetDefaultReportErrorFunc replaces the reporter used by InternalError.
func SetDefaultReportErrorFunc(fn ReportErrorFunc) {
	if fn != nil {
		reportErrorFunc = fn
	}
}

func (e *HTTPError) Error() string {
	if e.Message == "" && len(e.Errors) > 0 {
		return fmt.Sprintf("%d validation errors", len(e.Errors))
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Render writes the error as JSON with its status code.
func (e *HTTPError) Render(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

func NewHTTPError(statusCode int, msg string, originalErr error) *HTTPError {
	if msg == "" && originalErr != nil {
		var hErr *HTTPError
		if errors.As(originalErr, &hErr) && hErr.StatusCode == statusCode {
			return hErr
		}
	}
	return &HTTPError{StatusCode: statusCode, Message: msg, Err: originalErr}
}

func BadRequest(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "The request was invalid in some way."
	}
	return NewHTTPError(http.StatusBadRequest, msg, originalErr)
}

// ValidationFailed lists every rejected item.
func ValidationFailed(errs []string) *HTTPError {
	return &HTTPError{StatusCode: http.StatusBadRequest, Errors: errs}
}

func Unauthorized(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "Not authorized."
	}
	return NewHTTPError(http.StatusUnauthorized, msg, originalErr)
}

func NotFound(msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "Resource not found."
	}
	return NewHTTPError(http.StatusNotFound, msg, originalErr)
}

func TooManyRequests(msg string) *HTTPError {
	if msg == "" {
		msg = "Too many requests."
	}
	return NewHTTPError(http.StatusTooManyRequests, msg, nil)
}

// InternalError reports originalErr before building a 500.
func InternalError(ctx context.Context, msg string, originalErr error) *HTTPError {
	if msg == "" {
		msg = "An internal error occurred while processing this request."
	}
	if originalErr != nil {
		reportErrorFunc(ctx, originalErr, msg)
	}
	return NewHTTPError(http.StatusInternalServerError, msg, originalErr)
}

// Package apperr defines the error taxonomy shared by services and handlers.
//
// Services return *Error values (or wrap them); handlers turn them into the
// JSON envelope with StatusCode. Anything that is not an *Error is treated as
// an internal failure.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindQuota
	KindUpstream
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindQuota:
		return "quota"
	case KindUpstream:
		return "upstream"
	case KindParse:
		return "parse"
	default:
		return "internal"
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string      // user-facing message
	Code    string      // optional machine-readable code, e.g. PDF_DOWNLOAD_LIMIT_EXCEEDED
	Details interface{} // optional diagnostics (upstream body, quota info)
	Err     error       // wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// QuotaDetails is attached to quota errors.
type QuotaDetails struct {
	Action string `json:"action"`
	Tier   string `json:"tier"`
	Limit  int    `json:"limit"`
	Used   int    `json:"used"`
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Quota(msg, code string, details QuotaDetails) *Error {
	return &Error{Kind: KindQuota, Message: msg, Code: code, Details: details}
}

// Upstream wraps a failed third-party call. body is the upstream error payload,
// attached to the response for diagnostics.
func Upstream(service string, body interface{}, err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Message: fmt.Sprintf("%s request failed", service),
		Details: body,
		Err:     err,
	}
}

func Parse(msg string, err error) *Error {
	return &Error{Kind: KindParse, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// As extracts the *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// StatusCode maps an error to its HTTP status. Unclassified errors are 500.
func StatusCode(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindQuota:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Package svcerrors provides the unified error taxonomy surfaced by the
// tool registry and aggregation service, modeled on the teacher's
// infrastructure/errors.ServiceError (code/message/HTTPStatus/Details/Err)
// but carrying the kind taxonomy from the system's own error-handling
// design instead of the teacher's domain-specific codes.
package svcerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error taxonomy members surfaced in tool/report
// responses.
type Kind string

const (
	KindValidation     Kind = "ValidationError"
	KindNotFound       Kind = "NotFound"
	KindAuth           Kind = "AuthError"
	KindRateLimit      Kind = "RateLimitExceeded"
	KindCircuitOpen    Kind = "CircuitOpen"
	KindUpstream       Kind = "UpstreamFailure"
	KindUpstreamTimeout Kind = "UpstreamTimeout"
	KindPartialResult  Kind = "PartialResult"
	KindInternal       Kind = "InternalError"
)

var httpStatusByKind = map[Kind]int{
	KindValidation:      http.StatusBadRequest,
	KindNotFound:        http.StatusNotFound,
	KindAuth:            http.StatusUnauthorized,
	KindRateLimit:       http.StatusTooManyRequests,
	KindCircuitOpen:     http.StatusServiceUnavailable,
	KindUpstream:        http.StatusBadGateway,
	KindUpstreamTimeout: http.StatusGatewayTimeout,
	KindPartialResult:   http.StatusOK,
	KindInternal:        http.StatusInternalServerError,
}

var defaultMessageByKind = map[Kind]string{
	KindValidation:      "the request did not pass validation",
	KindNotFound:        "the requested entity could not be found",
	KindAuth:            "upstream rejected the configured credentials",
	KindRateLimit:       "rate limit exceeded, please retry later",
	KindCircuitOpen:     "the upstream provider is temporarily isolated, retry after cool-down",
	KindUpstream:        "the upstream provider returned an error",
	KindUpstreamTimeout: "the upstream provider did not respond in time",
	KindPartialResult:   "the result is partial; see warnings for omitted sections",
	KindInternal:        "an internal error occurred",
}

// ServiceError is the structured error returned from the core layers.
type ServiceError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Debug      string
	Err        error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped error for errors.Is/As.
func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches structured, user-facing detail to the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDebug attaches the original, non-user-facing diagnostic text. It is
// never copied into Message.
func (e *ServiceError) WithDebug(debug string) *ServiceError {
	e.Debug = debug
	return e
}

// New builds a ServiceError of the given kind, defaulting Message and
// HTTPStatus from the taxonomy when not overridden by callers via
// WithMessage.
func New(kind Kind, wrapped error) *ServiceError {
	return &ServiceError{
		Kind:       kind,
		Message:    defaultMessageByKind[kind],
		HTTPStatus: httpStatusByKind[kind],
		Err:        wrapped,
	}
}

// WithMessage overrides the default user-facing message.
func (e *ServiceError) WithMessage(msg string) *ServiceError {
	e.Message = msg
	return e
}

// As reports whether err is (or wraps) a *ServiceError, returning it.
func As(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is a ServiceError, else KindInternal.
func KindOf(err error) Kind {
	if se, ok := As(err); ok {
		return se.Kind
	}
	return KindInternal
}

package apperrors

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindInvalidRequest   Kind = "invalid_request"
	KindIntegrityFailure Kind = "integrity_failure"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindUpstreamFailure  Kind = "upstream_failure"
	KindUnexpected       Kind = "unexpected"
)

type Exception struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Exception) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Exception) Unwrap() error {
	return e.Err
}

type ExceptionOption func(*Exception)

func WithMessage(message string) ExceptionOption {
	return func(e *Exception) {
		e.Message = message
	}
}

func WithError(err error) ExceptionOption {
	return func(e *Exception) {
		e.Err = err
	}
}

func newException(kind Kind, code int, message string, opts []ExceptionOption) *Exception {
	e := &Exception{Kind: kind, Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func InvalidRequest(opts ...ExceptionOption) *Exception {
	return newException(KindInvalidRequest, http.StatusBadRequest, "invalid request", opts)
}

func IntegrityFailure(opts ...ExceptionOption) *Exception {
	return newException(KindIntegrityFailure, http.StatusUnauthorized, "callback integrity check failed", opts)
}

func NotFound(opts ...ExceptionOption) *Exception {
	return newException(KindNotFound, http.StatusNotFound, "transaction not found", opts)
}

func Conflict(opts ...ExceptionOption) *Exception {
	return newException(KindConflict, http.StatusConflict, "transaction is not pending", opts)
}

func UpstreamFailure(opts ...ExceptionOption) *Exception {
	return newException(KindUpstreamFailure, http.StatusBadGateway, "upstream call failed", opts)
}

func Unexpected(opts ...ExceptionOption) *Exception {
	return newException(KindUnexpected, http.StatusInternalServerError, "internal server error", opts)
}

// KindOf returns the kind of the first Exception in err's chain.
func KindOf(err error) Kind {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc.Kind
	}
	return KindUnexpected
}

// Is reports whether err carries an Exception of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

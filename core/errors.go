package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched by errors.Is against the typed verification errors below.
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrResponse          = errors.New("unexpected response")
)

// ErrorKind tags a verification failure.
type ErrorKind int

const (
	// KindUnknown covers everything outside the taxonomy: transport failures,
	// key set fetch failures and other infrastructure errors.
	KindUnknown ErrorKind = iota
	KindInvalidToken
	KindInvalidParameters
	KindResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidToken:
		return "invalid_token"
	case KindInvalidParameters:
		return "invalid_params"
	case KindResponse:
		return "response_error"
	default:
		return "unknown"
	}
}

// HTTPStatus is the status an HTTP surface answers with for this kind of failure.
// Bad tokens and bad requests are the caller's fault; a misbehaving issuer is a
// bad gateway.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInvalidToken, KindInvalidParameters:
		return http.StatusBadRequest
	case KindResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// InvalidTokenError means the token is malformed, badly signed, or fails claim
// validation. Callers should reject the request without retrying.
type InvalidTokenError struct {
	Message string
	// Cause is the underlying validator error, if any.
	Cause error
}

// NewInvalidTokenError builds an InvalidTokenError with the given message.
func NewInvalidTokenError(msg string) *InvalidTokenError {
	return &InvalidTokenError{Message: msg}
}

func (e *InvalidTokenError) Error() string { return e.Message }

func (e *InvalidTokenError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInvalidToken}
	}
	return []error{ErrInvalidToken, e.Cause}
}

// InvalidParametersError means the verification request itself was malformed.
type InvalidParametersError struct {
	Message string
}

// NewInvalidParametersError builds an InvalidParametersError with the given message.
func NewInvalidParametersError(msg string) *InvalidParametersError {
	return &InvalidParametersError{Message: msg}
}

func (e *InvalidParametersError) Error() string { return e.Message }
func (e *InvalidParametersError) Unwrap() error { return ErrInvalidParameters }

// ResponseError means the verification endpoint answered with an unexpected status.
type ResponseError struct {
	StatusCode int
	Message    string
}

// NewResponseError builds a ResponseError for the given HTTP status code.
func NewResponseError(status int) *ResponseError {
	return &ResponseError{
		StatusCode: status,
		Message:    fmt.Sprintf("Request failed with status %d", status),
	}
}

func (e *ResponseError) Error() string { return e.Message }
func (e *ResponseError) Unwrap() error { return ErrResponse }

// KindOf reports which variant err belongs to.
func KindOf(err error) ErrorKind {
	var (
		it *InvalidTokenError
		ip *InvalidParametersError
		re *ResponseError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &it):
		return KindInvalidToken
	case errors.As(err, &ip):
		return KindInvalidParameters
	case errors.As(err, &re):
		return KindResponse
	default:
		return KindUnknown
	}
}

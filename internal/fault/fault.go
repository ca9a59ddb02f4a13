package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so HTTP boundaries can translate it into a
// stable machine-readable response.
type Kind string

const (
	// KindValidation marks malformed or missing client input.
	KindValidation Kind = "validation"
	// KindNotFound marks a referenced record that no longer exists.
	KindNotFound Kind = "not_found"
	// KindConflict marks a variant/template identity mismatch.
	KindConflict Kind = "conflict"
	// KindUpstreamUnavailable marks a provider network failure or 5xx.
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	// KindSignatureInvalid marks a failed webhook signature check.
	KindSignatureInvalid Kind = "signature_invalid"
	// KindConfigurationMissing marks a required secret or rate id that is absent.
	KindConfigurationMissing Kind = "configuration_missing"
)

// Error carries a classified failure with an operation-scoped code.
type Error struct {
	Kind   Kind
	Code   string
	Detail string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error with a human-actionable detail message.
func New(kind Kind, code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

// Wrap builds a classified error around an underlying cause.
func Wrap(kind Kind, code, detail string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail, Err: cause}
}

// WithStatus overrides the HTTP status derived from the kind.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// KindOf extracts the Kind from an error chain; empty when unclassified.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return ""
}

// StatusOf maps an error chain to an HTTP status code.
func StatusOf(err error) int {
	var classified *Error
	if !errors.As(err, &classified) {
		return http.StatusInternalServerError
	}
	if classified.Status != 0 {
		return classified.Status
	}
	switch classified.Kind {
	case KindValidation, KindSignatureInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	case KindConfigurationMissing:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Response is the wire shape every classified error renders to.
type Response struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// ResponseOf renders an error chain into the stable wire shape.
func ResponseOf(err error) Response {
	var classified *Error
	if errors.As(err, &classified) {
		return Response{Error: classified.Code, Kind: string(classified.Kind), Detail: classified.Detail}
	}
	return Response{Error: "internal_error", Kind: "internal"}
}

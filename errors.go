package hookflow

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
)

// Registration errors.
var (
	ErrInvalidHandler      = errors.New("invalid route handler")
	ErrInvalidErrorHandler = errors.New("invalid error handler")
	ErrInvalidPattern      = errors.New("routing pattern must begin with '/'")
	ErrInvalidMethod       = errors.New("invalid http method")
	ErrInvalidParser       = errors.New("invalid content type parser")
	ErrNilPlugin           = errors.New("nil plugin")
	ErrAppReady            = errors.New("application is already ready")
	ErrRouteHook           = errors.New("onRoute hook failed")
)

// HTTPError is a structured error carrying an HTTP status, a machine-readable code and
// optional response headers. The error handler chain reads all three.
type HTTPError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Headers http.Header    `json:"-"`
	cause   error
}

// NewHTTPError creates an error with the given status and message.
func NewHTTPError(status int, code, message string) HTTPError {
	return HTTPError{Status: status, Code: code, Message: message}
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status code for the error.
func (e HTTPError) StatusCode() int {
	return e.Status
}

// ErrorCode returns the machine-readable error code.
func (e HTTPError) ErrorCode() string {
	return e.Code
}

// ErrorHeaders returns headers the default error handler copies onto the reply.
func (e HTTPError) ErrorHeaders() http.Header {
	return e.Headers
}

// Unwrap returns the cause attached with WithError.
func (e HTTPError) Unwrap() error {
	return e.cause
}

// Is matches another HTTPError with the same status and code, so errors.Is works
// against the predefined values after WithMessage and friends.
func (e HTTPError) Is(target error) bool {
	t, ok := target.(HTTPError)
	return ok && t.Status == e.Status && t.Code == e.Code
}

// WithMessage returns a copy of the error with a custom message.
func (e HTTPError) WithMessage(message string) HTTPError {
	e.Message = message
	return e
}

// WithMessagef returns a copy of the error with a formatted message.
func (e HTTPError) WithMessagef(format string, args ...any) HTTPError {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// WithDetails returns a copy of the error with additional details.
func (e HTTPError) WithDetails(details map[string]any) HTTPError {
	e.Details = details
	return e
}

// WithHeader returns a copy of the error that sets key on the response.
func (e HTTPError) WithHeader(key, value string) HTTPError {
	h := make(http.Header, len(e.Headers)+1)
	maps.Copy(h, e.Headers)
	h.Set(key, value)
	e.Headers = h
	return e
}

// WithError returns a copy of the error wrapping err as its cause.
func (e HTTPError) WithError(err error) HTTPError {
	e.cause = err
	if err != nil {
		details := make(map[string]any, len(e.Details)+1)
		maps.Copy(details, e.Details)
		details["cause"] = err.Error()
		e.Details = details
	}
	return e
}

// Predefined HTTP errors using http.StatusText for default messages.
var (
	ErrBadRequest           = NewHTTPError(http.StatusBadRequest, "bad_request", http.StatusText(http.StatusBadRequest))
	ErrUnauthorized         = NewHTTPError(http.StatusUnauthorized, "unauthorized", http.StatusText(http.StatusUnauthorized))
	ErrForbidden            = NewHTTPError(http.StatusForbidden, "forbidden", http.StatusText(http.StatusForbidden))
	ErrNotFound             = NewHTTPError(http.StatusNotFound, "not_found", http.StatusText(http.StatusNotFound))
	ErrRequestTimeout       = NewHTTPError(http.StatusRequestTimeout, "request_timeout", http.StatusText(http.StatusRequestTimeout))
	ErrPayloadTooLarge      = NewHTTPError(http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large")
	ErrUnsupportedMediaType = NewHTTPError(http.StatusUnsupportedMediaType, "unsupported_media_type", "Unsupported Media Type")
	ErrEmptyJSONBody        = NewHTTPError(http.StatusBadRequest, "empty_json_body", "Body cannot be empty when content-type is set to 'application/json'")
	ErrInvalidJSONBody      = NewHTTPError(http.StatusBadRequest, "invalid_json_body", "Body is not valid JSON")
	ErrValidation           = NewHTTPError(http.StatusBadRequest, "validation_failed", "Request validation failed")
	ErrInternalServerError  = NewHTTPError(http.StatusInternalServerError, "internal_server_error", http.StatusText(http.StatusInternalServerError))
	ErrServiceUnavailable   = NewHTTPError(http.StatusServiceUnavailable, "service_unavailable", http.StatusText(http.StatusServiceUnavailable))

	// Reply errors
	ErrInvalidPayloadType       = NewHTTPError(http.StatusInternalServerError, "invalid_payload_type", "Attempted to send payload of invalid type")
	ErrSerialization            = NewHTTPError(http.StatusInternalServerError, "serialization_failed", "Failed to serialize the response payload")
	ErrFailedErrorSerialization = NewHTTPError(http.StatusInternalServerError, "failed_error_serialization", "Failed to serialize an error")
)

// statusCoder is implemented by errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// errorCoder is implemented by errors that carry a machine-readable code.
type errorCoder interface {
	ErrorCode() string
}

// errorHeaderer is implemented by errors that carry response headers.
type errorHeaderer interface {
	ErrorHeaders() http.Header
}

func errorStatus(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

func errorCode(err error) string {
	var ec errorCoder
	if errors.As(err, &ec) {
		return ec.ErrorCode()
	}
	return ""
}

func errorHeaders(err error) http.Header {
	var eh errorHeaderer
	if errors.As(err, &eh) {
		return eh.ErrorHeaders()
	}
	return nil
}

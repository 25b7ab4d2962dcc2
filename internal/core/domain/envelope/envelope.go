package envelope

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error codes produced locally. Server-defined codes pass through untouched.
const (
	CodeNetworkError         = "NETWORK_ERROR"
	CodeDecodeError          = "DECODE_ERROR"
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeAuthError            = "AUTH_ERROR"
	CodeInvalidJobTransition = "INVALID_JOB_TRANSITION"

	httpCodePrefix = "HTTP_"
)

// APIError is the error half of a Result.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Code + ": " + e.Message }

// HTTPStatus returns the status embedded in an HTTP_<status> code, or 0.
func (e *APIError) HTTPStatus() int {
	if e == nil || !strings.HasPrefix(e.Code, httpCodePrefix) {
		return 0
	}
	status, err := strconv.Atoi(strings.TrimPrefix(e.Code, httpCodePrefix))
	if err != nil {
		return 0
	}
	return status
}

// Retryable reports whether a caller may safely retry the same operation.
// Network failures and 5xx responses are retryable; 4xx, decode and local
// validation failures are not.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	if e.Code == CodeNetworkError {
		return true
	}
	status := e.HTTPStatus()
	return status >= http.StatusInternalServerError
}

// HTTPCode builds the HTTP_<status> code for a non-2xx response.
func HTTPCode(status int) string {
	return fmt.Sprintf("%s%d", httpCodePrefix, status)
}

// NewError constructs an APIError.
func NewError(code, message string, details any) *APIError {
	return &APIError{Code: code, Message: message, Details: details}
}

// Result is the uniform success/error wrapper returned by every gateway
// operation. Exactly one of Data and Error is meaningful.
type Result[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// MarshalJSON writes data on success and error on failure, never both. A
// failed Result[T] holds the zero T, which omitempty cannot drop for structs.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success bool `json:"success"`
			Data    T    `json:"data"`
		}{Success: true, Data: r.Data})
	}
	return json.Marshal(struct {
		Success bool      `json:"success"`
		Error   *APIError `json:"error"`
	}{Success: false, Error: r.Error})
}

// Ok wraps a successful payload.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail wraps an error. A nil error is replaced by a generic one so the
// envelope never reports failure without a code.
func Fail[T any](err *APIError) Result[T] {
	if err == nil {
		err = NewError(CodeNetworkError, "unknown failure", nil)
	}
	return Result[T]{Success: false, Error: err}
}

// Failf is Fail with a freshly built error.
func Failf[T any](code, format string, args ...any) Result[T] {
	return Fail[T](NewError(code, fmt.Sprintf(format, args...), nil))
}

// Recast moves a failed result to another payload type.
func Recast[T, U any](r Result[T]) Result[U] {
	return Fail[U](r.Error)
}

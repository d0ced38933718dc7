// Package errors defines the error values the web frontend reports to its
// JSON clients and logs when the recipe backend misbehaves.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode is the stable machine readable part of an error response
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"
	CodeInternal         ErrorCode = "INTERNAL_ERROR"

	// The recipe backend could not be reached, answered non-2xx or sent a
	// body that does not decode.
	CodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	CodeBackendStatus      ErrorCode = "BACKEND_STATUS"
	CodeBackendDecode      ErrorCode = "BACKEND_DECODE"
)

type codeInfo struct {
	status  int
	message string
}

var codes = map[ErrorCode]codeInfo{
	CodeBadRequest:         {http.StatusBadRequest, "Bad request"},
	CodeNotFound:           {http.StatusNotFound, "Resource not found"},
	CodeValidationFailed:   {http.StatusBadRequest, "Validation failed"},
	CodeTooManyRequests:    {http.StatusTooManyRequests, "Too many requests"},
	CodeInternal:           {http.StatusInternalServerError, "An unexpected error occurred"},
	CodeBackendUnavailable: {http.StatusBadGateway, "Recipe service unavailable"},
	CodeBackendStatus:      {http.StatusBadGateway, "Recipe service error"},
	CodeBackendDecode:      {http.StatusBadGateway, "Invalid response from recipe service"},
}

// HTTPStatus maps the code to a response status; unknown codes are 500
func (c ErrorCode) HTTPStatus() int {
	if info, ok := codes[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// AppError carries a code, a human message and optional diagnostics
type AppError struct {
	Code     ErrorCode      `json:"code"`
	Message  string         `json:"message"`
	Details  string         `json:"details,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Cause    error          `json:"-"`
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Details != "" {
		fmt.Fprintf(&b, " (%s)", e.Details)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *AppError) Unwrap() error { return e.Cause }

// StatusCode is the HTTP status for the error's code
func (e *AppError) StatusCode() int { return e.Code.HTTPStatus() }

func (e *AppError) WithMetadata(key string, value any) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError builds an error; an empty message uses the code's default
func NewAppError(code ErrorCode, message, details string) *AppError {
	if message == "" {
		message = codes[code].message
	}
	return &AppError{Code: code, Message: message, Details: details}
}

func NewBadRequestError(details string) *AppError {
	return NewAppError(CodeBadRequest, "", details)
}

func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "", details)
}

// NewNotFoundError names what was missing, e.g. "Article"
func NewNotFoundError(resource string) *AppError {
	if resource == "" {
		return NewAppError(CodeNotFound, "", "")
	}
	return NewAppError(CodeNotFound, resource+" not found", "")
}

func NewInternalError(message string) *AppError {
	return NewAppError(CodeInternal, message, "")
}

func backendError(code ErrorCode, endpoint, details string) *AppError {
	return NewAppError(code, "", details).WithMetadata("endpoint", endpoint)
}

// NewBackendUnavailableError reports a transport failure calling endpoint
func NewBackendUnavailableError(endpoint string, cause error) *AppError {
	return backendError(CodeBackendUnavailable, endpoint, "failed to reach "+endpoint).WithCause(cause)
}

// NewBackendStatusError reports a non-2xx answer from endpoint
func NewBackendStatusError(endpoint string, status int) *AppError {
	return backendError(CodeBackendStatus, endpoint, fmt.Sprintf("%s answered %d", endpoint, status)).
		WithMetadata("status", status)
}

// NewBackendDecodeError reports a body from endpoint that did not parse
func NewBackendDecodeError(endpoint string, cause error) *AppError {
	return backendError(CodeBackendDecode, endpoint, "failed to decode "+endpoint).WithCause(cause)
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// Wrap returns the AppError inside err, or an internal error caused by it
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// Is reports whether err carries code
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// GetCode returns err's code, CodeInternal for foreign errors
func GetCode(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors joins field messages with "; "
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// NewValidationErrors keeps the per-field list under "validation_errors"
func NewValidationErrors(fields []ValidationError) *AppError {
	v := ValidationErrors(fields)
	return NewValidationError(v.Error()).WithMetadata("validation_errors", v)
}

// ErrorResponse is the JSON envelope returned by the /bff API
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

type ErrorDetails struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Details   string         `json:"details,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// ToErrorResponse stamps err with the request id and the current UTC time
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetails{
		Code:      err.Code,
		Message:   err.Message,
		Details:   err.Details,
		Metadata:  err.Metadata,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}}
}

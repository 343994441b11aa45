package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the normalized failure category of a transport or application fault.
type Code string

const (
	CodeConfigurationMissing Code = "CONFIGURATION_MISSING"
	CodeTimeout              Code = "TIMEOUT"
	CodeConnectionAborted    Code = "CONNECTION_ABORTED"
	CodeNetworkError         Code = "NETWORK_ERROR"
	CodeHTTPStatus           Code = "HTTP_STATUS"
	CodeUnknown              Code = "UNKNOWN"

	CodeValidation Code = "VALIDATION_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
)

var (
	ErrConfigurationMissing = NewError(CodeConfigurationMissing, "configuration missing", http.StatusServiceUnavailable)
	ErrTimeout              = NewError(CodeTimeout, "operation timed out", http.StatusGatewayTimeout)
	ErrConnectionAborted    = NewError(CodeConnectionAborted, "connection aborted", http.StatusBadGateway)
	ErrNetwork              = NewError(CodeNetworkError, "network error", http.StatusBadGateway)
	ErrUnknown              = NewError(CodeUnknown, "unknown error", http.StatusInternalServerError)
	ErrValidation           = NewError(CodeValidation, "validation failed", http.StatusBadRequest)
	ErrInternal             = NewError(CodeInternal, "internal server error", http.StatusInternalServerError)
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

// Error is a classified error. Status carries the remote HTTP status for
// CodeHTTPStatus and the status to answer with for everything else.
type Error struct {
	Code      Code
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code Code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

// HTTPStatus builds the classification of a non-2xx response.
func HTTPStatus(status int, message string) *Error {
	return NewError(CodeHTTPStatus, message, status)
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	code := string(e.Code)
	if e.Code == CodeHTTPStatus {
		code = fmt.Sprintf("%s(%d)", e.Code, e.Status)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether another attempt may succeed. HTTP 400, 401 and
// 403 never are; missing configuration and validation failures never are.
func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	switch e.Code {
	case CodeHTTPStatus:
		switch e.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return false
		}
		return true
	case CodeConfigurationMissing, CodeValidation:
		return false
	}
	if e.Cause != nil {
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return !fatalErr.IsFatal()
		}
	}
	return true
}

func (e *Error) IsFatal() bool {
	return !e.IsRetryable()
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithMessage(message string) *Error {
	err := *e
	err.Message = message
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	err := *e
	err.Details = details
	return &err
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

// As extracts a classified error from err, wrapping anything else as unknown.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithMessage(err.Error()).WithCause(err)
}

func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

func IsTimeout(err error) bool {
	return CodeOf(err) == CodeTimeout
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": string(appErr.Code),
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}

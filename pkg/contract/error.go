package contract

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrorCodeInternalError           ErrorCode = "INTERNAL_ERROR"
	ErrorCodeBadRequest              ErrorCode = "BAD_REQUEST"
	ErrorCodeInvalidParameterValue   ErrorCode = "INVALID_PARAMETER_VALUE"
	ErrorCodeInvalidState            ErrorCode = "INVALID_STATE"
	ErrorCodeEndpointNotFound        ErrorCode = "ENDPOINT_NOT_FOUND"
	ErrorCodeResourceDoesNotExist    ErrorCode = "RESOURCE_DOES_NOT_EXIST"
	ErrorCodeResourceAlreadyExists   ErrorCode = "RESOURCE_ALREADY_EXISTS"
	ErrorCodeUnauthenticated         ErrorCode = "UNAUTHENTICATED"
	ErrorCodePermissionDenied        ErrorCode = "PERMISSION_DENIED"
	ErrorCodeRequestLimitExceeded    ErrorCode = "REQUEST_LIMIT_EXCEEDED"
	ErrorCodeTemporarilyUnavailable  ErrorCode = "TEMPORARILY_UNAVAILABLE"
	ErrorCodeServiceUnderMaintenance ErrorCode = "SERVICE_UNDER_MAINTENANCE"
)

// Error is the error shape used on the wire by MLflow compatible services.
type Error struct {
	Code    ErrorCode `json:"error_code"`
	Message string    `json:"message"`
	Inner   error     `json:"-"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func NewErrorWith(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Inner:   err,
	}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Inner != nil {
		return fmt.Sprintf("%s: %v", msg, e.Inner)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    ErrorCode `json:"error_code"`
		Message string    `json:"message"`
	}{
		Code:    e.Code,
		Message: e.Message,
	})
}

//nolint:cyclop
func (e *Error) StatusCode() int {
	switch e.Code {
	case ErrorCodeBadRequest,
		ErrorCodeInvalidParameterValue,
		ErrorCodeInvalidState,
		ErrorCodeResourceAlreadyExists:
		return http.StatusBadRequest
	case ErrorCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrorCodePermissionDenied:
		return http.StatusForbidden
	case ErrorCodeEndpointNotFound, ErrorCodeResourceDoesNotExist:
		return http.StatusNotFound
	case ErrorCodeRequestLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorCodeTemporarilyUnavailable, ErrorCodeServiceUnderMaintenance:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCodeFromStatus picks a code for a response that carried no MLflow error body.
func ErrorCodeFromStatus(status int) ErrorCode {
	switch {
	case status == http.StatusBadRequest:
		return ErrorCodeBadRequest
	case status == http.StatusUnauthorized:
		return ErrorCodeUnauthenticated
	case status == http.StatusForbidden:
		return ErrorCodePermissionDenied
	case status == http.StatusNotFound:
		return ErrorCodeEndpointNotFound
	case status == http.StatusTooManyRequests:
		return ErrorCodeRequestLimitExceeded
	case status == http.StatusServiceUnavailable:
		return ErrorCodeTemporarilyUnavailable
	default:
		return ErrorCodeInternalError
	}
}

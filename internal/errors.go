package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "VALIDATION_ERROR"
	ErrorTypeUnauthorized    ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden       ErrorType = "FORBIDDEN"
	ErrorTypeInactiveAccount ErrorType = "INACTIVE_ACCOUNT"
	ErrorTypeNetwork         ErrorType = "NETWORK_ERROR"
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeRequestFailed   ErrorType = "REQUEST_FAILED"
	ErrorTypeInternal        ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingRecipient   ErrorCode = "MISSING_RECIPIENT"
	ErrCodeMissingSubject     ErrorCode = "MISSING_SUBJECT"
	ErrCodeMissingBody        ErrorCode = "MISSING_BODY"
	ErrCodeMissingCredentials ErrorCode = "MISSING_CREDENTIALS"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeAccountInactive    ErrorCode = "ACCOUNT_INACTIVE"
	ErrCodeSessionExpired     ErrorCode = "SESSION_EXPIRED"
	ErrCodeNotAuthenticated   ErrorCode = "NOT_AUTHENTICATED"
	ErrCodePermissionDenied   ErrorCode = "PERMISSION_DENIED"

	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeRequestFailed      ErrorCode = "REQUEST_FAILED"
	ErrCodeThreadNotFound     ErrorCode = "THREAD_NOT_FOUND"
)

// AppError is the single error shape crossing package boundaries. The Type
// drives what the caller does with it (retry, clear session, toast).
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithMessage(message string) *AppError {
	clone := *e
	if message != "" {
		clone.Message = message
	}
	return &clone
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInactiveAccountError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInactiveAccount,
		Code:       ErrCodeAccountInactive,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Code:       ErrCodeBackendUnavailable,
		Message:    message,
		StatusCode: 0,
		Cause:      cause,
	}
}

func NewRequestFailedError(message string, statusCode int) *AppError {
	return &AppError{
		Type:       ErrorTypeRequestFailed,
		Code:       ErrCodeRequestFailed,
		Message:    message,
		StatusCode: statusCode,
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrInactiveAccount    = NewInactiveAccountError("Your account is inactive, please contact your administrator")
	ErrSessionExpired     = NewUnauthorizedError("Session expired, please sign in again", ErrCodeSessionExpired)
	ErrNotAuthenticated   = NewUnauthorizedError("Not signed in", ErrCodeNotAuthenticated)
	ErrPermissionDenied   = NewForbiddenError("You do not have permission to perform this action", ErrCodePermissionDenied)
	ErrThreadNotFound     = NewNotFoundError("Mail thread not found", ErrCodeThreadNotFound)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsAuthError reports whether err means the credentials themselves are bad
// (401/403) as opposed to the backend being unreachable. The session store
// clears state on the former and falls back to cached data on the latter.
func IsAuthError(err error) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Type == ErrorTypeUnauthorized || appErr.Type == ErrorTypeForbidden
	}
	return false
}

// IsNetworkError reports whether err is a transport failure or a 5xx, the
// recoverable class during startup and background refresh.
func IsNetworkError(err error) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Type == ErrorTypeNetwork
	}
	return false
}

func IsInactiveAccountError(err error) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Type == ErrorTypeInactiveAccount
	}
	return false
}

func IsValidationError(err error) bool {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Type == ErrorTypeValidation
	}
	return false
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

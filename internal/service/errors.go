package service

import (
	"errors"
	"net/http"
)

type ErrorCode string

const (
	CodeDuplicateAccount     ErrorCode = "DUPLICATE_ACCOUNT"
	CodeInvalidCredentials   ErrorCode = "INVALID_CREDENTIALS"
	CodeEmailNotVerified     ErrorCode = "EMAIL_NOT_VERIFIED"
	CodeInvalidOrExpiredCode ErrorCode = "INVALID_OR_EXPIRED_CODE"
	CodeSessionExpired       ErrorCode = "SESSION_EXPIRED"
	CodeSessionRevoked       ErrorCode = "SESSION_REVOKED"
	CodeSessionInvalid       ErrorCode = "SESSION_INVALID"
	CodeUnauthenticated      ErrorCode = "UNAUTHENTICATED"
	CodeRateLimited          ErrorCode = "RATE_LIMITED"
	CodeCSRFRejected         ErrorCode = "CSRF_REJECTED"
	CodeForbidden            ErrorCode = "FORBIDDEN"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeInvalidInput         ErrorCode = "INVALID_INPUT"
	CodeMFARequired          ErrorCode = "MFA_REQUIRED"
	CodeInvalidMFACode       ErrorCode = "INVALID_MFA_CODE"
	CodeInternal             ErrorCode = "INTERNAL"
)

// AuthError is an expected failure with a stable code safe to show callers.
type AuthError struct {
	Code    ErrorCode
	Message string
	Status  int
}

func (e *AuthError) Error() string {
	return e.Message
}

func newAuthError(code ErrorCode, message string, status int) *AuthError {
	return &AuthError{Code: code, Message: message, Status: status}
}

var (
	ErrInvalidInput          = newAuthError(CodeInvalidInput, "invalid input", http.StatusBadRequest)
	ErrDuplicateAccount      = newAuthError(CodeDuplicateAccount, "an account with this email already exists", http.StatusBadRequest)
	ErrInvalidCredentials    = newAuthError(CodeInvalidCredentials, "invalid email or password", http.StatusUnauthorized)
	ErrEmailNotVerified      = newAuthError(CodeEmailNotVerified, "please verify your email before continuing", http.StatusForbidden)
	ErrInvalidOrExpiredCode  = newAuthError(CodeInvalidOrExpiredCode, "invalid or expired code", http.StatusBadRequest)
	ErrSessionExpired        = newAuthError(CodeSessionExpired, "session expired", http.StatusUnauthorized)
	ErrSessionRevoked        = newAuthError(CodeSessionRevoked, "session revoked", http.StatusUnauthorized)
	ErrSessionInvalid        = newAuthError(CodeSessionInvalid, "invalid session", http.StatusUnauthorized)
	ErrUnauthenticated       = newAuthError(CodeUnauthenticated, "authentication required", http.StatusUnauthorized)
	ErrRateLimited           = newAuthError(CodeRateLimited, "too many requests, try again later", http.StatusTooManyRequests)
	ErrCSRFRejected          = newAuthError(CodeCSRFRejected, "csrf token missing or invalid", http.StatusForbidden)
	ErrForbidden             = newAuthError(CodeForbidden, "forbidden", http.StatusForbidden)
	ErrNotFound              = newAuthError(CodeNotFound, "not found", http.StatusNotFound)
	ErrMFARequired           = newAuthError(CodeMFARequired, "mfa is not set up for this account", http.StatusBadRequest)
	ErrInvalidMFACode        = newAuthError(CodeInvalidMFACode, "invalid mfa code", http.StatusUnauthorized)
	ErrMFANotConfigured      = newAuthError(CodeForbidden, "mfa is not available", http.StatusForbidden)
	ErrOAuthNotConfigured    = newAuthError(CodeNotFound, "oauth login is not enabled", http.StatusNotFound)
	ErrOAuthEmailUnavailable = newAuthError(CodeInvalidCredentials, "no verified email on the external account", http.StatusUnauthorized)
)

func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

func IsSessionError(err error) bool {
	return errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSessionRevoked) ||
		errors.Is(err, ErrSessionInvalid) ||
		errors.Is(err, ErrUnauthenticated)
}

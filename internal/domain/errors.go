package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Domain Error Types
// ============================================================================

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code, so wrapped
// errors still match the sentinels below with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// ============================================================================
// Common Domain Errors
// ============================================================================

var (
	// User Errors
	ErrUserNotFound = &DomainError{
		Code:    "USER_NOT_FOUND",
		Message: "user not found",
	}
	ErrUserAlreadyExists = &DomainError{
		Code:    "USER_ALREADY_EXISTS",
		Message: "user with this username already exists",
	}
	ErrInvalidCredentials = &DomainError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid username or password",
	}

	// Session Errors
	ErrSessionNotFound = &DomainError{
		Code:    "SESSION_NOT_FOUND",
		Message: "session not found",
	}

	// OAuth Errors
	ErrOAuthFailed = &DomainError{
		Code:    "OAUTH_FAILED",
		Message: "oauth login failed",
	}
	ErrOAuthNotConfigured = &DomainError{
		Code:    "OAUTH_NOT_CONFIGURED",
		Message: "oauth provider not configured",
	}

	// Validation Errors
	ErrValidationFailed = &DomainError{
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
	}

	// Infrastructure Errors
	ErrDatabaseOperation = &DomainError{
		Code:    "DATABASE_OPERATION_FAILED",
		Message: "database operation failed",
	}
	ErrNetworkOperation = &DomainError{
		Code:    "NETWORK_OPERATION_FAILED",
		Message: "network operation failed",
	}
)

// ============================================================================
// Error Wrapping Helpers
// ============================================================================

// WrapUserNotFound wraps an error as a user not found error
func WrapUserNotFound(key string, cause error) error {
	return &DomainError{
		Code:    ErrUserNotFound.Code,
		Message: fmt.Sprintf("user not found: %s", key),
		Cause:   cause,
	}
}

// WrapUserAlreadyExists wraps an error as a user already exists error
func WrapUserAlreadyExists(username string, cause error) error {
	return &DomainError{
		Code:    ErrUserAlreadyExists.Code,
		Message: fmt.Sprintf("user already exists: %s", username),
		Cause:   cause,
	}
}

// WrapValidationError wraps an error as a validation failure for a form field
func WrapValidationError(field string, cause error) error {
	return &DomainError{
		Code:    ErrValidationFailed.Code,
		Message: fmt.Sprintf("validation failed for %s", field),
		Cause:   cause,
	}
}

// WrapOAuthFailed wraps an error as an oauth failure for the given stage
func WrapOAuthFailed(stage string, cause error) error {
	return &DomainError{
		Code:    ErrOAuthFailed.Code,
		Message: fmt.Sprintf("oauth %s failed", stage),
		Cause:   cause,
	}
}

// WrapDatabaseOperation wraps an error as a database operation failure
func WrapDatabaseOperation(operation string, cause error) error {
	return &DomainError{
		Code:    ErrDatabaseOperation.Code,
		Message: fmt.Sprintf("database operation failed: %s", operation),
		Cause:   cause,
	}
}

// WrapNetworkOperation wraps an error as a network operation failure
func WrapNetworkOperation(operation string, cause error) error {
	return &DomainError{
		Code:    ErrNetworkOperation.Code,
		Message: fmt.Sprintf("network operation failed: %s", operation),
		Cause:   cause,
	}
}

// PublicMessage returns a message safe to show a user: the domain message and
// its cause, without the internal code.
func PublicMessage(err error) string {
	var domainErr *DomainError
	if err == nil || !errors.As(err, &domainErr) {
		return "An error occurred"
	}
	if domainErr.Cause != nil {
		return fmt.Sprintf("%s: %v", domainErr.Message, domainErr.Cause)
	}
	return domainErr.Message
}

// ============================================================================
// Error Checking Helpers
// ============================================================================

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrUserNotFound.Code ||
			domainErr.Code == ErrSessionNotFound.Code
	}
	return false
}

// IsConflictError checks if an error signals a uniqueness conflict
func IsConflictError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrUserAlreadyExists.Code
	}
	return false
}

// IsAuthError checks if an error is an authentication failure
func IsAuthError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrInvalidCredentials.Code ||
			domainErr.Code == ErrOAuthFailed.Code ||
			domainErr.Code == ErrOAuthNotConfigured.Code
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrValidationFailed.Code
	}
	return false
}

// IsInfrastructureError checks if an error is an infrastructure error
func IsInfrastructureError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrDatabaseOperation.Code ||
			domainErr.Code == ErrNetworkOperation.Code
	}
	return false
}

package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapValidationError(t *testing.T) {
	tests := []struct {
		name               string
		field              string
		cause              error
		expectedPublicMsg  string
		shouldContainInMsg []string
	}{
		{
			name:              "with cause error",
			field:             "username",
			cause:             errors.New("username cannot be empty"),
			expectedPublicMsg: "validation failed for username: username cannot be empty",
			shouldContainInMsg: []string{
				"validation failed for username",
				"cannot be empty",
			},
		},
		{
			name:              "with nil cause",
			field:             "secret",
			cause:             nil,
			expectedPublicMsg: "validation failed for secret",
			shouldContainInMsg: []string{
				"validation failed for secret",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapValidationError(tt.field, tt.cause)

			if err == nil {
				t.Fatal("expected error but got nil")
			}

			var domainErr *DomainError
			if !errors.As(err, &domainErr) {
				t.Error("expected error to be a DomainError")
			}

			errMsg := err.Error()
			if !strings.Contains(errMsg, "VALIDATION_FAILED") {
				t.Errorf("expected error message to contain code VALIDATION_FAILED, but got: %q", errMsg)
			}

			publicMsg := PublicMessage(err)
			if publicMsg != tt.expectedPublicMsg {
				t.Errorf("expected public message:\n  %q\nbut got:\n  %q", tt.expectedPublicMsg, publicMsg)
			}

			for _, substr := range tt.shouldContainInMsg {
				if !strings.Contains(publicMsg, substr) {
					t.Errorf("expected public message to contain %q, but got: %q", substr, publicMsg)
				}
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expectedMsg string
	}{
		{
			name:        "domain error with message",
			err:         &DomainError{Code: "TEST_ERROR", Message: "test message"},
			expectedMsg: "test message",
		},
		{
			name:        "conflict error",
			err:         WrapUserAlreadyExists("alice", nil),
			expectedMsg: "user already exists: alice",
		},
		{
			name:        "non-domain error",
			err:         errors.New("some random error"),
			expectedMsg: "An error occurred",
		},
		{
			name:        "nil error returns generic message",
			err:         nil,
			expectedMsg: "An error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := PublicMessage(tt.err)
			if msg != tt.expectedMsg {
				t.Errorf("expected message %q, but got %q", tt.expectedMsg, msg)
			}
		})
	}
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	wrapped := WrapUserNotFound("42", errors.New("no rows"))

	if !errors.Is(wrapped, ErrUserNotFound) {
		t.Error("expected wrapped error to match ErrUserNotFound")
	}
	if errors.Is(wrapped, ErrUserAlreadyExists) {
		t.Error("did not expect wrapped error to match ErrUserAlreadyExists")
	}
	if errors.Is(errors.New("plain"), ErrUserNotFound) {
		t.Error("did not expect plain error to match ErrUserNotFound")
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		notFound       bool
		conflict       bool
		auth           bool
		validation     bool
		infrastructure bool
	}{
		{name: "user not found", err: WrapUserNotFound("x", nil), notFound: true},
		{name: "session not found", err: ErrSessionNotFound, notFound: true},
		{name: "duplicate username", err: WrapUserAlreadyExists("alice", nil), conflict: true},
		{name: "bad password", err: ErrInvalidCredentials, auth: true},
		{name: "oauth failure", err: WrapOAuthFailed("exchange", errors.New("boom")), auth: true},
		{name: "oauth disabled", err: ErrOAuthNotConfigured, auth: true},
		{name: "validation", err: WrapValidationError("secret", nil), validation: true},
		{name: "database", err: WrapDatabaseOperation("insert user", errors.New("disk full")), infrastructure: true},
		{name: "network", err: WrapNetworkOperation("fetch profile", errors.New("timeout")), infrastructure: true},
		{name: "nil", err: nil},
		{name: "random", err: errors.New("random error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFoundError(tt.err); got != tt.notFound {
				t.Errorf("IsNotFoundError = %v, want %v", got, tt.notFound)
			}
			if got := IsConflictError(tt.err); got != tt.conflict {
				t.Errorf("IsConflictError = %v, want %v", got, tt.conflict)
			}
			if got := IsAuthError(tt.err); got != tt.auth {
				t.Errorf("IsAuthError = %v, want %v", got, tt.auth)
			}
			if got := IsValidationError(tt.err); got != tt.validation {
				t.Errorf("IsValidationError = %v, want %v", got, tt.validation)
			}
			if got := IsInfrastructureError(tt.err); got != tt.infrastructure {
				t.Errorf("IsInfrastructureError = %v, want %v", got, tt.infrastructure)
			}
		})
	}
}

package validation

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxUsernameLength = 64
	// MaxPasswordBytes bounds the work a single login can ask the hasher to do
	MaxPasswordBytes = 1024
	MaxSecretLength  = 2000
)

// ValidateUsername checks a local account name
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username cannot be empty")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return errors.New("username must be 64 characters or less")
	}
	if username != strings.TrimSpace(username) {
		return errors.New("username cannot start or end with whitespace")
	}

	for _, r := range username {
		if unicode.IsControl(r) {
			return errors.New("username cannot contain control characters")
		}
	}

	return nil
}

// ValidatePassword checks a plaintext password before hashing
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if len(password) > MaxPasswordBytes {
		return errors.New("password is too long")
	}
	return nil
}

// ValidateSecret checks submitted secret text. Whitespace inside the text is
// kept as-is; only blank submissions are refused.
func ValidateSecret(secret string) error {
	if strings.TrimSpace(secret) == "" {
		return errors.New("secret cannot be empty")
	}
	if utf8.RuneCountInString(secret) > MaxSecretLength {
		return errors.New("secret must be 2000 characters or less")
	}
	if !utf8.ValidString(secret) {
		return errors.New("secret must be valid UTF-8")
	}
	return nil
}

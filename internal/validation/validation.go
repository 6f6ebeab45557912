// Package validation checks user-supplied account and content fields.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
	MaxTitleLength    = 200
	MaxContentLength  = 10000
	MaxEmailLength    = 254
)

// ValidateEmail accepts a bare address such as "ada@example.com".
func ValidateEmail(email string) error {
	if email == "" || len(email) > MaxEmailLength {
		return fmt.Errorf("email must be between 1 and %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("email address is invalid")
	}
	return nil
}

// ValidatePassword requires at least MinPasswordLength characters, at most
// MaxPasswordBytes bytes, and at least one letter and one digit.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain at least one letter and one digit")
	}
	return nil
}

// Text trims value, normalizes it to NFC and checks it is non-empty and at most max
// characters. It returns the normalized value.
func Text(field, value string, max int) (string, error) {
	trimmed := norm.NFC.String(strings.TrimSpace(value))
	if trimmed == "" {
		return "", fmt.Errorf("%s cannot be empty", field)
	}
	if utf8.RuneCountInString(trimmed) > max {
		return "", fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return trimmed, nil
}

// Title validates a post title.
func Title(v string) (string, error) {
	return Text("title", v, MaxTitleLength)
}

// Content validates a post or comment body.
func Content(v string) (string, error) {
	return Text("content", v, MaxContentLength)
}

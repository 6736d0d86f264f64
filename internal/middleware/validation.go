package middleware

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxMessageLength bounds one inbound message in bytes.
const MaxMessageLength = 4096

// MaxUserKeyLength bounds a user key in bytes.
const MaxUserKeyLength = 128

// ValidateMessageText validates inbound message text.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("text cannot be empty")
	}
	if len(text) > MaxMessageLength {
		return errors.New("text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	return nil
}

// ValidateUserKey validates the key identifying a user's conversation,
// typically a channel-qualified phone number.
func ValidateUserKey(key string) error {
	if key == "" {
		return errors.New("user key cannot be empty")
	}
	if len(key) > MaxUserKeyLength {
		return errors.New("user key exceeds maximum length")
	}
	if !utf8.ValidString(key) {
		return errors.New("user key must be valid UTF-8")
	}
	for _, r := range key {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return errors.New("user key cannot contain whitespace or control characters")
		}
	}
	return nil
}

// ValidateLimit validates a page size.
func ValidateLimit(limit, max int) error {
	if limit < 1 || limit > max {
		return errors.New("limit out of range")
	}
	return nil
}

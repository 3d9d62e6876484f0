// Package domain – subscriber input parsing.
//
// Subscriber emails and names arrive from two places: fresh signups (HTTP
// payloads) and rows already stored in the database (the delivery worker
// re-validates stored addresses before sending). Both go through the same
// parse functions so that the rules cannot drift apart.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MaxSubscriberNameLen is the maximum accepted name length in runes.
const MaxSubscriberNameLen = 256

// validate is a shared validator instance; validator.Validate is safe for
// concurrent use.
var validate = validator.New()

// ErrInvalidSubscriberEmail indicates an address that failed validation.
var ErrInvalidSubscriberEmail = errors.New("invalid subscriber email")

// ErrInvalidSubscriberName indicates a display name that failed validation.
var ErrInvalidSubscriberName = errors.New("invalid subscriber name")

// ParseSubscriberEmail validates a raw email address and returns it trimmed.
// Failures wrap ErrInvalidSubscriberEmail.
func ParseSubscriberEmail(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: must not be empty", ErrInvalidSubscriberEmail)
	}
	if err := validate.Var(s, "email,max=320"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidSubscriberEmail, s)
	}
	return s, nil
}

// forbiddenNameChars are characters rejected in subscriber names, mainly to
// keep stored names safe to embed in HTML and shell-adjacent contexts.
const forbiddenNameChars = `/()"<>\{}`

// ParseSubscriberName validates a display name: non-empty after trimming,
// at most MaxSubscriberNameLen runes, and free of forbidden characters.
// Failures wrap ErrInvalidSubscriberName.
func ParseSubscriberName(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: must not be empty", ErrInvalidSubscriberName)
	}
	if utf8.RuneCountInString(s) > MaxSubscriberNameLen {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidSubscriberName, MaxSubscriberNameLen)
	}
	if strings.ContainsAny(s, forbiddenNameChars) {
		return "", fmt.Errorf("%w: contains forbidden characters", ErrInvalidSubscriberName)
	}
	return s, nil
}

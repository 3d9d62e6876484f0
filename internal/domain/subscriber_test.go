package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSubscriberEmail(t *testing.T) {
	if got, err := ParseSubscriberEmail("  ursula@example.com "); err != nil || got != "ursula@example.com" {
		t.Fatalf("expected trimmed valid email, got (%q, %v)", got, err)
	}

	for _, bad := range []string{"", "   ", "not-an-email", "missing-at.example.com", "@example.com", "a@"} {
		if _, err := ParseSubscriberEmail(bad); !errors.Is(err, ErrInvalidSubscriberEmail) {
			t.Fatalf("expected ErrInvalidSubscriberEmail for %q, got %v", bad, err)
		}
	}
}

func TestParseSubscriberName_Valid(t *testing.T) {
	got, err := ParseSubscriberName("Ursula Le Guin")
	if err != nil || got != "Ursula Le Guin" {
		t.Fatalf("expected valid name, got (%q, %v)", got, err)
	}
	// 256 runes is the inclusive boundary, multi-byte runes included.
	if _, err := ParseSubscriberName(strings.Repeat("ë", MaxSubscriberNameLen)); err != nil {
		t.Fatalf("256-rune name should be valid: %v", err)
	}
}

func TestParseSubscriberName_Invalid(t *testing.T) {
	if _, err := ParseSubscriberName(strings.Repeat("a", MaxSubscriberNameLen+1)); !errors.Is(err, ErrInvalidSubscriberName) {
		t.Fatalf("expected rejection of overlong name, got %v", err)
	}
	if _, err := ParseSubscriberName("   "); !errors.Is(err, ErrInvalidSubscriberName) {
		t.Fatal("expected rejection of whitespace-only name")
	}
	for _, ch := range []string{"/", "(", ")", `"`, "<", ">", `\`, "{", "}"} {
		if _, err := ParseSubscriberName("name" + ch); !errors.Is(err, ErrInvalidSubscriberName) {
			t.Fatalf("expected rejection of name containing %q", ch)
		}
	}
}

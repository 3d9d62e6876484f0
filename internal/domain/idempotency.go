// Package domain defines the core persistence models for the application.
// This file contains the idempotency record used to make newsletter publishing
// safe to retry, plus the in-memory representation of a saved HTTP response.
package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// MaxIdempotencyKeyLen caps the accepted length of a client-supplied
// idempotency key. Keys are opaque tokens; a UUID fits comfortably.
const MaxIdempotencyKeyLen = 50

// idempotencyKeyRE restricts keys to an RFC-7230-ish token alphabet plus a
// few common safe characters.
var idempotencyKeyRE = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// ErrInvalidIdempotencyKey indicates a client-supplied idempotency key that
// failed validation (empty, too long, or containing forbidden characters).
var ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")

// ValidateIdempotencyKey checks a raw client-supplied key against the
// validation rules: non-empty, at most MaxIdempotencyKeyLen bytes, and drawn
// from the restricted token alphabet. All failures wrap
// ErrInvalidIdempotencyKey so callers can branch with errors.Is.
func ValidateIdempotencyKey(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidIdempotencyKey)
	}
	if len(raw) > MaxIdempotencyKeyLen {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidIdempotencyKey, MaxIdempotencyKeyLen)
	}
	if !idempotencyKeyRE.MatchString(raw) {
		return fmt.Errorf("%w: contains forbidden characters", ErrInvalidIdempotencyKey)
	}
	return nil
}

// IdempotencyRecord persists the outcome of a previously processed publish
// request, keyed by (user_id, idempotency_key). The row is inserted the
// moment a key is first seen, with all response fields NULL; they are filled
// in by a single UPDATE when the guarded operation completes, in the same
// transaction that performed the side effects. A row whose response fields
// are still NULL therefore marks a claim that never finished.
//
// Rows are never deleted in normal operation.
type IdempotencyRecord struct {
	UserID         string    `gorm:"type:varchar(64);primaryKey"`
	IdempotencyKey string    `gorm:"type:varchar(50);primaryKey"`
	CreatedAt      time.Time `gorm:"not null"`

	// Saved response. NULL until the guarded operation commits; then all
	// three are set atomically by one UPDATE.
	ResponseStatusCode *int16
	ResponseHeaders    []byte // JSON-encoded []HeaderPair
	ResponseBody       []byte
}

// TableName implements the GORM tabler interface.
func (IdempotencyRecord) TableName() string { return "idempotency" }

// HeaderPair is one recorded response header. Values are raw bytes because
// HTTP header values are not guaranteed to be UTF-8, and the same name may
// repeat; order is preserved by storing pairs as a list.
type HeaderPair struct {
	Name  string `json:"name"`
	Value []byte `json:"value"`
}

// SavedResponse is the byte-exact HTTP response replayed for duplicate
// submissions: status code, ordered header pairs, and raw body.
type SavedResponse struct {
	StatusCode int
	Headers    []HeaderPair
	Body       []byte
}

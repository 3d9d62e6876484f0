// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file centralizes repository-level error values and the
// unique-violation detection shared by insert helpers.
package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that an insert collided with an existing row on a
// unique constraint (e.g., a subscription email already registered).
var ErrDuplicate = errors.New("duplicate")

// ErrMissingSavedResponse indicates an idempotency row that exists but has no
// recorded response: a claim was started and never completed. The publish path
// surfaces this as a hard error rather than silently re-running the side
// effect, which could send the issue twice.
var ErrMissingSavedResponse = errors.New("idempotency record has no saved response")

// isUniqueViolation reports whether err is a unique-constraint failure.
// GORM's translated error covers PostgreSQL; glebarez/sqlite often returns
// plain-text errors for UNIQUE violations, so the message is sniffed too.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}

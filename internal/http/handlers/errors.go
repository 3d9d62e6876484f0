// Package handlers defines the HTTP-layer error codes shared by all API
// endpoints. Codes are lowercase snake_case and stable: clients branch on
// them programmatically, messages are for humans.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodePublishFailed     = "publish_failed"
	ErrCodePublishIncomplete = "publish_incomplete"
	ErrCodeSubscribeFailed   = "subscribe_failed"
	ErrCodeConfirmFailed     = "confirm_failed"
)

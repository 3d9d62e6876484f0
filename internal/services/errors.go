// Package services defines the business logic for publishing newsletter
// issues and managing subscriptions. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrEmptyTitle is returned when a publish request carries an empty title.
	ErrEmptyTitle = errors.New("issue title is empty")

	// ErrEmptyContent is returned when a publish request is missing the HTML
	// or plain-text body.
	ErrEmptyContent = errors.New("issue content is empty")

	// ErrDuplicateSubscription indicates that the email address is already
	// registered.
	ErrDuplicateSubscription = errors.New("subscription already exists")

	// ErrSubscriptionNotFound indicates an unknown confirmation token or
	// subscription id.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrEmptyToken is returned when a confirmation request carries no token.
	ErrEmptyToken = errors.New("subscription token is empty")

	// ErrConfirmationEmail wraps a failure to deliver the confirmation email.
	// The subscription row is already committed when this happens; the
	// subscriber can retry signup or be re-sent the link.
	ErrConfirmationEmail = errors.New("failed to send confirmation email")
)

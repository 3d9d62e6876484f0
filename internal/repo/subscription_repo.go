// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for subscriptions
// and their confirmation tokens.
//
// Error semantics follow the rest of the package: ErrNotFound for missing
// rows, ErrDuplicate for unique violations, raw GORM errors otherwise.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
)

// CreateSubscription inserts a pending subscription for (name, email).
// It returns ErrDuplicate when the email is already registered.
func CreateSubscription(tx *gorm.DB, name, email string, now time.Time) (*domain.Subscription, error) {
	sub := &domain.Subscription{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Status:       domain.SubscriptionPending,
		SubscribedAt: now,
	}
	if err := tx.Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return sub, nil
}

// StoreSubscriptionToken persists a one-time confirmation token for a
// pending subscription.
func StoreSubscriptionToken(tx *gorm.DB, subscriptionID, token string) error {
	return tx.Create(&domain.SubscriptionToken{
		Token:          token,
		SubscriptionID: subscriptionID,
	}).Error
}

// GetSubscriptionIDByToken resolves a confirmation token to its subscription
// ID, or ErrNotFound for an unknown token.
func GetSubscriptionIDByToken(ctx context.Context, db *gorm.DB, token string) (string, error) {
	var rec domain.SubscriptionToken
	err := db.WithContext(ctx).Where("token = ?", token).First(&rec).Error
	if err != nil {
		return "", err
	}
	return rec.SubscriptionID, nil
}

// ConfirmSubscription flips a subscription to confirmed. Confirming an
// already-confirmed subscription is a no-op rather than an error, so a
// subscriber clicking the link twice sees the same result both times.
func ConfirmSubscription(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("id = ?", id).
		Update("status", domain.SubscriptionConfirmed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListConfirmedEmails returns the addresses of all confirmed subscriptions.
// Called within the publish transaction, it is the snapshot that delivery
// fan-out is based on: subscribers confirmed later are not retroactively
// included in an already-published issue.
func ListConfirmedEmails(tx *gorm.DB) ([]string, error) {
	var emails []string
	err := tx.Model(&domain.Subscription{}).
		Where("status = ?", domain.SubscriptionConfirmed).
		Order("subscribed_at asc").
		Pluck("email", &emails).Error
	return emails, err
}

// NewSubscriptionToken generates a fresh confirmation token.
func NewSubscriptionToken() string { return uuid.NewString() }

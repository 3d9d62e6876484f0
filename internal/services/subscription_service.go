// Package services – SubscriptionService
//
// This file implements the subscription lifecycle: signup (pending row plus a
// one-time confirmation token, followed by a confirmation email) and
// confirmation (token redemption flips the status to confirmed). Only
// confirmed subscriptions are included when an issue is published.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
	"github.com/tbourn/go-newsletter-backend/internal/email"
	"github.com/tbourn/go-newsletter-backend/internal/repo"
)

// SubscriptionService owns subscription signup and confirmation.
type SubscriptionService struct {
	DB    *gorm.DB
	Email email.Client

	// PublicBaseURL is the externally reachable base URL used to build
	// confirmation links, e.g. "https://newsletter.example.com".
	PublicBaseURL string
}

// Subscribe validates the payload, stores a pending subscription with a fresh
// confirmation token, and emails the confirmation link. The row and token
// commit before the email is attempted; an email failure therefore leaves a
// pending subscription behind and is reported via ErrConfirmationEmail.
func (s *SubscriptionService) Subscribe(ctx context.Context, rawName, rawEmail string) (*domain.Subscription, error) {
	tr := otel.Tracer("services/SubscriptionService")
	ctx, span := tr.Start(ctx, "Subscribe")
	defer span.End()

	name, err := domain.ParseSubscriberName(rawName)
	if err != nil {
		return nil, err
	}
	addr, err := domain.ParseSubscriberEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	var (
		sub   *domain.Subscription
		token = repo.NewSubscriptionToken()
		now   = time.Now().UTC()
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sub, err = repo.CreateSubscription(tx, name, addr, now)
		if err != nil {
			return err
		}
		return repo.StoreSubscriptionToken(tx, sub.ID, token)
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrDuplicateSubscription
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("subscription.id", sub.ID))

	if err := s.sendConfirmationEmail(ctx, addr, token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfirmationEmail, err)
	}
	return sub, nil
}

// Confirm redeems a confirmation token and marks the subscription confirmed.
// Redeeming the same token twice succeeds both times with the same outcome.
func (s *SubscriptionService) Confirm(ctx context.Context, token string) error {
	tr := otel.Tracer("services/SubscriptionService")
	ctx, span := tr.Start(ctx, "Confirm",
		trace.WithAttributes(attribute.String("subscription.token", token)),
	)
	defer span.End()

	if token == "" {
		return ErrEmptyToken
	}

	id, err := repo.GetSubscriptionIDByToken(ctx, s.DB, token)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrSubscriptionNotFound
	}
	if err != nil {
		return err
	}

	err = repo.ConfirmSubscription(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrSubscriptionNotFound
	}
	return err
}

// sendConfirmationEmail delivers the signup confirmation link.
func (s *SubscriptionService) sendConfirmationEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/api/v1/subscriptions/confirm?subscription_token=%s", s.PublicBaseURL, token)
	html := fmt.Sprintf(
		`Welcome to our newsletter!<br />Click <a href="%s">here</a> to confirm your subscription.`,
		link,
	)
	text := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.",
		link,
	)
	return s.Email.Send(ctx, to, "Please confirm your subscription", html, text)
}

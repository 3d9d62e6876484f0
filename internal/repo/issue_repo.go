// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for newsletter
// issues. Issues are write-once: created by the publish transaction and only
// ever read afterwards.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
)

// CreateIssue inserts a new NewsletterIssue row within tx. The issue ID is a
// randomly generated UUID and PublishedAt is set from now (UTC expected).
func CreateIssue(tx *gorm.DB, title, textContent, htmlContent string, now time.Time) (*domain.NewsletterIssue, error) {
	issue := &domain.NewsletterIssue{
		ID:          uuid.NewString(),
		Title:       title,
		TextContent: textContent,
		HTMLContent: htmlContent,
		PublishedAt: now,
	}
	if err := tx.Create(issue).Error; err != nil {
		return nil, err
	}
	return issue, nil
}

// GetIssue fetches a single issue by ID, or ErrNotFound if missing.
func GetIssue(ctx context.Context, db *gorm.DB, id string) (*domain.NewsletterIssue, error) {
	var issue domain.NewsletterIssue
	err := db.WithContext(ctx).Where("id = ?", id).First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the issue
// delivery queue: fan-out at publish time, contended claims by the worker,
// and deletion once a task reaches a terminal outcome.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
)

// EnqueueDeliveryTasks inserts one DeliveryTask per subscriber email for
// issueID within tx. A nil or empty email list is a no-op. Uniqueness of the
// enqueue as a whole is guaranteed upstream by the idempotency claim, so no
// conflict handling is needed here.
func EnqueueDeliveryTasks(tx *gorm.DB, issueID string, emails []string) error {
	if len(emails) == 0 {
		return nil
	}
	tasks := make([]domain.DeliveryTask, 0, len(emails))
	for _, e := range emails {
		tasks = append(tasks, domain.DeliveryTask{
			NewsletterIssueID: issueID,
			SubscriberEmail:   e,
		})
	}
	return tx.CreateInBatches(tasks, 500).Error
}

// ClaimDeliveryTask locks and returns one arbitrary queue row within tx, or
// ErrNotFound when the queue is empty.
//
// On PostgreSQL the row is taken FOR UPDATE SKIP LOCKED: rows claimed by a
// concurrent transaction are invisible here, so two workers never receive the
// same task, and a crashed worker's row becomes claimable again the moment
// its connection drops. SQLite serializes writers and ignores the clause.
func ClaimDeliveryTask(tx *gorm.DB) (*domain.DeliveryTask, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{
			Strength: clause.LockingStrengthUpdate,
			Options:  clause.LockingOptionsSkipLocked,
		})
	}

	var task domain.DeliveryTask
	if err := q.Take(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteDeliveryTask removes the (issueID, email) row within tx. Committing
// tx while it still holds the claim lock is what guarantees each row is
// finalized by at most one worker.
func DeleteDeliveryTask(tx *gorm.DB, issueID, email string) error {
	return tx.
		Where("newsletter_issue_id = ? AND subscriber_email = ?", issueID, email).
		Delete(&domain.DeliveryTask{}).Error
}

// CountDeliveryTasks returns the number of outstanding tasks for issueID.
func CountDeliveryTasks(ctx context.Context, db *gorm.DB, issueID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.DeliveryTask{}).
		Where("newsletter_issue_id = ?", issueID).
		Count(&total).Error
	return total, err
}

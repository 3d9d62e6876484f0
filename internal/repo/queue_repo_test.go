package repo

import (
	"context"
	"errors"
	"testing"
)

func TestEnqueueDeliveryTasks_FanOutAndCount(t *testing.T) {
	db := newTestDB(t)

	issue, err := CreateIssue(db, "Issue #1", "text", "<p>html</p>", testNow())
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	if err := EnqueueDeliveryTasks(db, issue.ID, emails); err != nil {
		t.Fatalf("EnqueueDeliveryTasks: %v", err)
	}

	total, err := CountDeliveryTasks(context.Background(), db, issue.ID)
	if err != nil {
		t.Fatalf("CountDeliveryTasks: %v", err)
	}
	if total != int64(len(emails)) {
		t.Fatalf("expected %d tasks, got %d", len(emails), total)
	}

	// Empty fan-out is a no-op, not an error.
	if err := EnqueueDeliveryTasks(db, issue.ID, nil); err != nil {
		t.Fatalf("empty enqueue: %v", err)
	}
}

func TestClaimDeliveryTask_DrainsToEmpty(t *testing.T) {
	db := newTestDB(t)

	issue, err := CreateIssue(db, "Issue #1", "text", "<p>html</p>", testNow())
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	emails := []string{"a@example.com", "b@example.com"}
	if err := EnqueueDeliveryTasks(db, issue.ID, emails); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < len(emails); i++ {
		task, err := ClaimDeliveryTask(db)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if task.NewsletterIssueID != issue.ID {
			t.Fatalf("unexpected issue id %q", task.NewsletterIssueID)
		}
		if seen[task.SubscriberEmail] {
			t.Fatalf("task for %q claimed twice", task.SubscriberEmail)
		}
		seen[task.SubscriberEmail] = true

		if err := DeleteDeliveryTask(db, task.NewsletterIssueID, task.SubscriberEmail); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}

	if _, err := ClaimDeliveryTask(db); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty queue, got %v", err)
	}

	total, err := CountDeliveryTasks(context.Background(), db, issue.ID)
	if err != nil || total != 0 {
		t.Fatalf("expected empty queue, got total=%d err=%v", total, err)
	}
}

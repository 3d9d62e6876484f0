// Package services – PublishService
//
// This file implements PublishService, the application-level component that
// owns newsletter publishing. Publishing is an inherently non-idempotent,
// slow, partially-failing operation ("email every confirmed subscriber"), so
// the whole path is built around making it safe to retry:
//
//   - Every submit carries a client-supplied idempotency key scoped to the
//     acting user. The first submit for a (user, key) pair claims the key and
//     runs the real work; any later submit replays the byte-exact response
//     that the first one produced, with no side effects re-executed.
//   - The claim, the issue row, the per-subscriber delivery queue rows, and
//     the saved response all live in one database transaction. Either all of
//     them become visible together, or none do.
//   - Actual email delivery is NOT part of this transaction. Submit only
//     enqueues; the delivery worker (internal/worker) drains the queue
//     asynchronously.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the user id and (on the fresh path) the new issue id.
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
	"github.com/tbourn/go-newsletter-backend/internal/repo"
)

// PublishService coordinates idempotent newsletter publishing: claim-or-replay
// on the idempotency key, then fan-out into the delivery queue.
type PublishService struct {
	DB *gorm.DB
}

// publishedBody is the JSON body of a successful publish response.
type publishedBody struct {
	IssueID string `json:"issue_id"`
	Status  string `json:"status"`
}

// Submit publishes a newsletter issue, or replays the recorded outcome of a
// previous publish with the same (userID, key).
//
// Returns the response to serve (identical bytes on fresh and replayed
// paths), a flag reporting whether it was a replay, and an error. Error
// cases worth noting:
//
//   - domain.ErrInvalidIdempotencyKey: key failed validation; nothing was
//     persisted.
//   - repo.ErrMissingSavedResponse: a claim for this key exists but never
//     completed (concurrent in-flight duplicate, or a crashed prior attempt).
//     Surfaced as an error because silently re-running the side effect could
//     publish twice; there is no reclaim path by design.
func (s *PublishService) Submit(ctx context.Context, userID, key, title, htmlContent, textContent string) (*domain.SavedResponse, bool, error) {
	tr := otel.Tracer("services/PublishService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if err := domain.ValidateIdempotencyKey(key); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, false, ErrEmptyTitle
	}
	if strings.TrimSpace(htmlContent) == "" || strings.TrimSpace(textContent) == "" {
		return nil, false, ErrEmptyContent
	}

	now := time.Now().UTC()

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, false, tx.Error
	}

	won, err := repo.BeginClaim(tx, userID, key, now)
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}
	if !won {
		// A prior claim exists. Release our transaction and replay whatever
		// the winner saved. ErrMissingSavedResponse propagates as-is.
		tx.Rollback()
		saved, err := repo.GetSavedResponse(ctx, s.DB, userID, key)
		if err != nil {
			return nil, false, err
		}
		return saved, true, nil
	}

	// We own the claim: create the issue and fan out one delivery task per
	// subscriber confirmed right now. Later confirmations are not included
	// retroactively; the snapshot is part of the publish.
	issue, err := repo.CreateIssue(tx, title, textContent, htmlContent, now)
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}
	span.SetAttributes(attribute.String("newsletter.issue_id", issue.ID))

	emails, err := repo.ListConfirmedEmails(tx)
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}
	if err := repo.EnqueueDeliveryTasks(tx, issue.ID, emails); err != nil {
		tx.Rollback()
		return nil, false, err
	}

	resp, err := publishedResponse(issue.ID)
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}
	if err := repo.SaveResponse(tx, userID, key, resp); err != nil {
		tx.Rollback()
		return nil, false, err
	}

	// One commit makes the claim, the issue, the queue rows, and the saved
	// response visible atomically together.
	if err := tx.Commit().Error; err != nil {
		return nil, false, err
	}
	return resp, false, nil
}

// publishedResponse builds the canonical success response saved for replay.
func publishedResponse(issueID string) (*domain.SavedResponse, error) {
	body, err := json.Marshal(publishedBody{IssueID: issueID, Status: "published"})
	if err != nil {
		return nil, err
	}
	return &domain.SavedResponse{
		StatusCode: http.StatusCreated,
		Headers: []domain.HeaderPair{
			{Name: "Content-Type", Value: []byte("application/json; charset=utf-8")},
		},
		Body: body,
	}, nil
}

// Package worker implements the newsletter delivery worker: a long-running
// loop that drains the issue delivery queue one task at a time.
//
// Each iteration walks Idle → Claiming → Sending → Finalizing and back:
//
//   - Claiming opens a transaction and locks one arbitrary queue row
//     (FOR UPDATE SKIP LOCKED on PostgreSQL). Rows locked by another worker
//     are invisible, so any number of instances can drain the same table
//     without double-sending.
//   - Sending re-validates the stored address, loads the issue, and calls the
//     email transport. The network call cannot be part of the transaction,
//     which is why delivery is at-least-once rather than exactly-once.
//   - Finalizing deletes the row and commits while still holding the claim
//     lock. A crash anywhere before the commit releases the lock with the
//     row intact, so the task is simply claimed again later.
//
// There is no persisted cursor: progress is defined entirely by which rows
// still exist. The loop never terminates on a single task's failure; it backs
// off briefly and keeps going.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
	"github.com/tbourn/go-newsletter-backend/internal/email"
	"github.com/tbourn/go-newsletter-backend/internal/repo"
)

// Outcome reports what a single TryExecuteTask call achieved.
type Outcome int

const (
	// TaskCompleted means one queue row reached a terminal outcome and was
	// removed (delivered, skipped as invalid, or dropped per policy).
	TaskCompleted Outcome = iota
	// EmptyQueue means no claimable row existed.
	EmptyQueue
)

// FailurePolicy decides what happens to a claimed task whose send attempt
// failed at the transport.
type FailurePolicy int

const (
	// DropOnSendFailure deletes the row anyway: one unreachable subscriber
	// must not starve delivery to everyone else in an unordered queue. This
	// trades per-subscriber retry for queue liveness and is the default.
	DropOnSendFailure FailurePolicy = iota
	// RetryOnSendFailure keeps the row (the claim transaction rolls back),
	// making the task claimable again after the error backoff.
	RetryOnSendFailure
)

// Default pacing. The empty-queue sleep is deliberate backpressure relief:
// tight polling on an idle queue wastes the database's time.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultErrorBackoff = 1 * time.Second
)

// Worker drains the issue delivery queue. Multiple Workers may run against
// the same database, in the same or different processes.
type Worker struct {
	DB    *gorm.DB
	Email email.Client

	// PollInterval is the sleep after finding the queue empty; ErrorBackoff
	// the sleep after an unexpected cycle error. Zero values use defaults.
	PollInterval time.Duration
	ErrorBackoff time.Duration

	// OnSendFailure selects the terminal-failure policy for transport errors.
	OnSendFailure FailurePolicy

	// SleepFn replaces the real sleep in tests. When nil, a context-aware
	// timer sleep is used.
	SleepFn func(ctx context.Context, d time.Duration)

	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Run executes the worker loop until ctx is cancelled, returning ctx.Err().
// Errors from individual cycles are logged and absorbed.
func (w *Worker) Run(ctx context.Context) error {
	lg := w.logger().With().Str("component", "delivery_worker").Logger()
	lg.Info().Msg("delivery worker started")

	for {
		if err := ctx.Err(); err != nil {
			lg.Info().Msg("delivery worker stopping")
			return err
		}

		outcome, err := w.TryExecuteTask(ctx)
		switch {
		case err != nil:
			lg.Error().Err(err).Msg("delivery cycle failed")
			w.sleep(ctx, w.errorBackoff())
		case outcome == EmptyQueue:
			w.sleep(ctx, w.pollInterval())
		}
		// TaskCompleted: claim the next task immediately.
	}
}

// TryExecuteTask claims and finalizes at most one queue row. It is exposed
// separately from Run so tests (and operational tooling) can drain the queue
// deterministically without waiting out the idle backoff.
func (w *Worker) TryExecuteTask(ctx context.Context) (Outcome, error) {
	tr := otel.Tracer("worker/Worker")
	ctx, span := tr.Start(ctx, "TryExecuteTask")
	defer span.End()

	tx := w.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return EmptyQueue, tx.Error
	}

	task, err := repo.ClaimDeliveryTask(tx)
	if errors.Is(err, repo.ErrNotFound) {
		tx.Rollback()
		return EmptyQueue, nil
	}
	if err != nil {
		tx.Rollback()
		return EmptyQueue, err
	}

	span.SetAttributes(
		attribute.String("newsletter.issue_id", task.NewsletterIssueID),
		attribute.String("newsletter.subscriber_email", task.SubscriberEmail),
	)
	lg := w.logger().With().
		Str("issue_id", task.NewsletterIssueID).
		Str("subscriber_email", task.SubscriberEmail).
		Logger()

	if err := w.attemptSend(ctx, task, lg); err != nil {
		// RetryOnSendFailure path: keep the row for a future claimant.
		tx.Rollback()
		return EmptyQueue, err
	}

	// Delete and commit while still holding the claim lock: no other worker
	// can have processed this row, and a crash before this point would have
	// left it claimable.
	if err := repo.DeleteDeliveryTask(tx, task.NewsletterIssueID, task.SubscriberEmail); err != nil {
		tx.Rollback()
		return EmptyQueue, err
	}
	if err := tx.Commit().Error; err != nil {
		return EmptyQueue, err
	}
	return TaskCompleted, nil
}

// attemptSend performs the send attempt for a claimed task and reports
// whether the task reached a terminal outcome. A non-nil error means the row
// must be kept (RetryOnSendFailure) or the cycle failed before any attempt.
func (w *Worker) attemptSend(ctx context.Context, task *domain.DeliveryTask, lg zerolog.Logger) error {
	addr, err := domain.ParseSubscriberEmail(task.SubscriberEmail)
	if err != nil {
		// A malformed stored address will never become valid; retrying would
		// waste cycles and can starve the queue. Terminal: fall through to
		// deletion without sending.
		lg.Error().Err(err).Msg("skipping subscriber: stored contact details are invalid")
		deliveryAttempts.WithLabelValues(outcomeInvalidEmail).Inc()
		return nil
	}

	// The issue is read from the pool, not the claim transaction; it is
	// immutable once published.
	issue, err := repo.GetIssue(ctx, w.DB, task.NewsletterIssueID)
	if err != nil {
		return err
	}

	if err := w.Email.Send(ctx, addr, issue.Title, issue.HTMLContent, issue.TextContent); err != nil {
		deliveryAttempts.WithLabelValues(outcomeSendFailed).Inc()
		if w.OnSendFailure == RetryOnSendFailure {
			lg.Error().Err(err).Msg("failed to deliver issue, keeping task for retry")
			return err
		}
		lg.Error().Err(err).Msg("failed to deliver issue to a confirmed subscriber, skipping")
		return nil
	}

	deliveryAttempts.WithLabelValues(outcomeDelivered).Inc()
	lg.Info().Msg("issue delivered")
	return nil
}

func (w *Worker) pollInterval() time.Duration {
	if w.PollInterval > 0 {
		return w.PollInterval
	}
	return DefaultPollInterval
}

func (w *Worker) errorBackoff() time.Duration {
	if w.ErrorBackoff > 0 {
		return w.ErrorBackoff
	}
	return DefaultErrorBackoff
}

func (w *Worker) logger() *zerolog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return &log.Logger
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if w.SleepFn != nil {
		w.SleepFn(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

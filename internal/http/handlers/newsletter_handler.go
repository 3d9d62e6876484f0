// Newsletter publishing HTTP handlers.
//
// This file exposes the admin endpoint:
//   - POST /admin/newsletters (publish an issue, idempotent per key)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. For publishing the
// translation is unusual in one way: the response served to the client is
// not rendered here but replayed verbatim from the bytes the service
// recorded, so a retried request observes exactly what the first one did.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
	"github.com/tbourn/go-newsletter-backend/internal/http/middleware"
	"github.com/tbourn/go-newsletter-backend/internal/repo"
	"github.com/tbourn/go-newsletter-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// PublisherService defines the publishing operation consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type PublisherService interface {
	// Submit publishes an issue or replays the recorded outcome for
	// (userID, key). The returned flag is true on replay.
	Submit(ctx context.Context, userID, key, title, htmlContent, textContent string) (*domain.SavedResponse, bool, error)
}

// SubscriberService defines the subscription lifecycle operations consumed
// by HTTP handlers.
type SubscriberService interface {
	Subscribe(ctx context.Context, name, email string) (*domain.Subscription, error)
	Confirm(ctx context.Context, token string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for publishing and subscriptions.
type Handlers struct {
	pubSvc PublisherService
	subSvc SubscriberService
}

// New constructs a Handlers instance bound to the given services.
func New(pubSvc PublisherService, subSvc SubscriberService) *Handlers {
	return &Handlers{pubSvc: pubSvc, subSvc: subSvc}
}

//
// DTOs
//

// PublishNewsletterRequest is the JSON payload for publishing an issue.
// Both bodies are required; subscribers whose client cannot render HTML
// fall back to the plain-text part.
type PublishNewsletterRequest struct {
	Title       string `json:"title" binding:"required"`
	HTMLContent string `json:"html_content" binding:"required"`
	TextContent string `json:"text_content" binding:"required"`
}

// PublishNewsletter handles POST /admin/newsletters.
//
// The Idempotency-Key header is mandatory (enforced by middleware). The
// response, fresh or replayed, is the byte-exact recorded outcome; replays
// additionally carry Idempotency-Replayed: true.
func (h *Handlers) PublishNewsletter(c *gin.Context) {
	key, okKey := middleware.GetIdempotencyKey(c)
	if !okKey {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "the Idempotency-Key header is required")
		return
	}

	var req PublishNewsletterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	uid := middleware.UserIDFrom(c)
	resp, replayed, err := h.pubSvc.Submit(c.Request.Context(), uid, key, req.Title, req.HTMLContent, req.TextContent)
	switch {
	case errors.Is(err, domain.ErrInvalidIdempotencyKey):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid Idempotency-Key")
		return
	case errors.Is(err, services.ErrEmptyTitle), errors.Is(err, services.ErrEmptyContent):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, repo.ErrMissingSavedResponse):
		// A claim exists but its outcome was never recorded: a concurrent
		// in-flight duplicate or a crashed prior attempt. Re-running could
		// deliver the issue twice, so the client must retry later.
		fail(c, http.StatusInternalServerError, ErrCodePublishIncomplete,
			"a previous attempt with this Idempotency-Key did not complete")
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("publish failed")
		fail(c, http.StatusInternalServerError, ErrCodePublishFailed, "could not publish the issue")
		return
	}

	writeSavedResponse(c, resp, replayed)
}

// writeSavedResponse serves a recorded response verbatim: status, headers in
// their original order, and the exact body bytes.
func writeSavedResponse(c *gin.Context, resp *domain.SavedResponse, replayed bool) {
	hdr := c.Writer.Header()
	for _, p := range resp.Headers {
		hdr.Add(p.Name, string(p.Value))
	}
	if replayed {
		hdr.Set(middleware.HeaderIdempotencyReplayed, "true")
	}
	c.Status(resp.StatusCode)
	_, _ = c.Writer.Write(resp.Body)
}

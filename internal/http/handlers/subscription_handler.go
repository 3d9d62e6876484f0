// Subscription HTTP handlers.
//
// This file exposes the public signup endpoints:
//   - POST /api/v1/subscriptions                 (sign up, pending state)
//   - GET  /api/v1/subscriptions/confirm?subscription_token=… (confirm)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
	"github.com/tbourn/go-newsletter-backend/internal/http/middleware"
	"github.com/tbourn/go-newsletter-backend/internal/services"
)

// SubscribeRequest is the JSON payload for signing up.
type SubscribeRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// SubscribeResponse reports the stored subscription.
type SubscribeResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// Subscribe handles POST /subscriptions. A successful signup stores a
// pending subscription and sends a confirmation email; the subscriber
// receives no issues until the link in that email is followed.
func (h *Handlers) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	sub, err := h.subSvc.Subscribe(c.Request.Context(), req.Name, req.Email)
	switch {
	case errors.Is(err, domain.ErrInvalidSubscriberName), errors.Is(err, domain.ErrInvalidSubscriberEmail):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrDuplicateSubscription):
		fail(c, http.StatusConflict, ErrCodeConflict, "email is already subscribed")
		return
	case errors.Is(err, services.ErrConfirmationEmail):
		// The pending row is stored; only the email failed. The client can
		// simply sign up again to trigger a fresh confirmation message.
		middleware.LoggerFrom(c).Error().Err(err).Msg("confirmation email failed")
		fail(c, http.StatusInternalServerError, ErrCodeSubscribeFailed, "could not send the confirmation email")
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("subscribe failed")
		fail(c, http.StatusInternalServerError, ErrCodeSubscribeFailed, "could not store the subscription")
		return
	}

	ok(c, http.StatusCreated, SubscribeResponse{ID: sub.ID, Email: sub.Email, Status: sub.Status})
}

// ConfirmSubscription handles GET /subscriptions/confirm. The token arrives
// as a query parameter because the endpoint is hit by clicking an email link.
func (h *Handlers) ConfirmSubscription(c *gin.Context) {
	token := c.Query("subscription_token")
	if token == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "subscription_token is required")
		return
	}

	err := h.subSvc.Confirm(c.Request.Context(), token)
	switch {
	case errors.Is(err, services.ErrSubscriptionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "unknown subscription token")
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("confirm failed")
		fail(c, http.StatusInternalServerError, ErrCodeConfirmFailed, "could not confirm the subscription")
		return
	}

	ok(c, http.StatusOK, gin.H{"status": "confirmed"})
}

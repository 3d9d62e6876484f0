// Package middleware contains the shared Gin middleware of the HTTP layer.
//
// This file handles the Idempotency-Key request header for the publish
// endpoint. The middleware validates the header, stashes the key in the Gin
// context, and (via a pluggable lookup) marks requests whose outcome is
// already recorded so that downstream components can serve the replay without
// consuming rate-limit tokens. Persistence stays behind the ReplayLookup
// function type; the middleware owns only the transport concerns.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
)

// HeaderIdempotencyKey carries the client-chosen idempotency key. Clients
// must reuse the same value when retrying the same semantic operation.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set to "true" on responses that were served
// from a previously recorded outcome rather than a fresh execution.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// GetIdempotencyKey returns the validated key stored by RequireIdempotencyKey.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether the lookup found a recorded outcome for this
// request's (user, key) pair.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ReplayLookup reports whether a completed outcome is already recorded for
// (userID, key). Errors are treated as "no replay": the request proceeds and
// the authoritative claim-or-replay decision happens in the service.
type ReplayLookup func(ctx context.Context, userID, key string) (bool, error)

// RequireIdempotencyKey validates the Idempotency-Key header and rejects
// requests that omit it. Publishing without a key is never accepted: a lost
// response with no key would leave the client unable to retry safely.
//
// On success the key is stashed in the context; when lookup reports a
// recorded outcome the request is additionally flagged as a replay and for
// rate-limit bypass. Replays cost the server almost nothing to serve, so
// they should not burn the client's quota.
func RequireIdempotencyKey(lookup ReplayLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "missing_idempotency_key",
				"message":    "the Idempotency-Key header is required",
			})
			return
		}
		if err := domain.ValidateIdempotencyKey(key); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if exists, _ := lookup(c.Request.Context(), UserIDFrom(c), key); exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// UserIDFrom extracts the acting user set by upstream authentication, falling
// back to a development identity when none is present.
func UserIDFrom(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if s := c.GetHeader("X-User-ID"); s != "" {
		return s
	}
	return "demo-user"
}

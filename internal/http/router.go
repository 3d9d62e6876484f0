// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, idempotency, and rate limiting.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate the correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after the logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. CORS and security headers
//
// The rate limiter is installed per route, not globally: on the publish route
// it must run after the idempotency-key middleware so that a detected replay
// can bypass limiting, and the key requirement itself applies only there.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-newsletter-backend/internal/config"
	"github.com/tbourn/go-newsletter-backend/internal/email"
	"github.com/tbourn/go-newsletter-backend/internal/http/handlers"
	"github.com/tbourn/go-newsletter-backend/internal/http/middleware"
	"github.com/tbourn/go-newsletter-backend/internal/repo"
	"github.com/tbourn/go-newsletter-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: observability, protection middleware, health and metrics endpoints,
// the admin publishing route, and the versioned public subscription API.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, mailer email.Client, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression; newsletter bodies are large and repetitive
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", middleware.HeaderIdempotencyReplayed},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", middleware.HeaderIdempotencyReplayed},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and the request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← db/mailer
	pubSvc := &services.PublishService{DB: db}
	subSvc := &services.SubscriptionService{
		DB:            db,
		Email:         mailer,
		PublicBaseURL: cfg.PublicBaseURL,
	}
	h := handlers.New(pubSvc, subSvc)

	// The lookup only flags known replays for rate-limit bypass; the
	// authoritative claim-or-replay decision happens inside the service.
	requireKey := middleware.RequireIdempotencyKey(
		func(ctx context.Context, userID, key string) (bool, error) {
			_, err := repo.GetSavedResponse(ctx, db, userID, key)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrMissingSavedResponse) {
					return false, nil
				}
				return false, err
			}
			return true, nil
		},
	)

	// Token-bucket rate limiter per user/IP. On the publish route it runs
	// after the key middleware, which is what lets replays skip limiting.
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	// Admin API
	r.POST("/admin/newsletters", requireKey, rl.Handler(), h.PublishNewsletter)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(rl.Handler())
	{
		api.POST("/subscriptions", h.Subscribe)
		api.GET("/subscriptions/confirm", h.ConfirmSubscription)
	}
}

// limitBody caps the request body for all endpoints via http.MaxBytesReader;
// oversized bodies error on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

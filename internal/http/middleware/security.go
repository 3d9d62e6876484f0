// Package middleware contains the shared Gin middleware of the HTTP layer.
//
// This file adds conservative security headers for a JSON API running behind
// a reverse proxy. HSTS is opt-in and only emitted on HTTPS requests.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders. Enable HSTS only when traffic
// is HTTPS end-to-end, including between the proxy and the app.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration // defaults to 180 days when unset
	NoStore      bool          // Cache-Control: no-store on every response
	EnablePolicy bool          // browser feature policies
}

// SecurityHeaders attaches baseline hardening headers to every response:
// nosniff, frame denial, and a strict referrer policy, plus the optional
// HSTS, cache-control, and permissions-policy headers from opt.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hstsValue := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		// Let browser clients read the correlation ID.
		if rid := h.Get("X-Request-ID"); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			switch {
			case cur == "":
				h.Set(hdr, "X-Request-ID")
			case !strings.Contains(cur, "X-Request-ID"):
				h.Set(hdr, cur+", X-Request-ID")
			}
		}

		c.Next()
	}
}

// isHTTPS reports whether the request arrived over TLS, directly or via a
// proxy that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

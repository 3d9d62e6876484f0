package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_EnforcesBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(0.0001, 2, KeyByUserOrIP())
	r.Use(rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header")
	}
}

func TestRateLimiter_ReplayBypassesLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rl := NewRateLimiter(0.0001, 1, KeyByUserOrIP())
	r.Use(func(c *gin.Context) {
		c.Set(ctxKeyRateBypass, true)
		c.Next()
	})
	r.Use(rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("bypassed request %d should pass, got %d", i, w.Code)
		}
	}
}

func TestRateLimiter_DistinctKeysDistinctBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByUserOrIP())
	a := rl.getVisitor("user:a")
	b := rl.getVisitor("user:b")
	if a == b {
		t.Fatal("distinct keys must map to distinct limiters")
	}
	if again := rl.getVisitor("user:a"); again != a {
		t.Fatal("repeated key must reuse its limiter")
	}
}

func TestNewRateLimiter_CoercesBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByUserOrIP())
	if rl.burst != 1 {
		t.Fatalf("expected burst coerced to 1, got %d", rl.burst)
	}
}

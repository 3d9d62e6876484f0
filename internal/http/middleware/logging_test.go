package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		if RequestIDFrom(c) == "" {
			t.Error("request id missing from context")
		}
		c.Status(http.StatusOK)
	})

	// Generated when absent.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a generated X-Request-ID")
	}

	// Propagated when provided.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("expected propagated id, got %q", got)
	}
}

func TestLogger_AttachesRequestScopedLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/", func(c *gin.Context) {
		if LoggerFrom(c) == nil {
			t.Error("expected a request-scoped logger")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
}

func TestLoggerFrom_FallbackWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if LoggerFrom(c) == nil {
		t.Fatal("fallback logger must not be nil")
	}
}

func TestRecovery_ConvertsPanicToJSON500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := w.Body.String(); body == "" {
		t.Fatal("expected a JSON error body")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("truncate mismatch: %q", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Fatalf("max<=0 must disable truncation: %q", got)
	}
}

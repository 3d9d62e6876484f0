package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHelpers_GetIdempotencyKey_IsReplay_UserIDFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if k, ok := GetIdempotencyKey(c); k != "" || ok {
		t.Fatalf("expected no key when not set, got %q", k)
	}
	if IsReplay(c) {
		t.Fatal("expected IsReplay=false by default")
	}

	// Wrong-typed context values must not panic.
	c.Set(ctxKeyIdemKey, 123)
	if _, ok := GetIdempotencyKey(c); ok {
		t.Fatal("expected absent key for non-string value")
	}
	c.Set(ctxKeyIdemReplay, "yes")
	if IsReplay(c) {
		t.Fatal("expected IsReplay=false for non-bool value")
	}
	c.Set(ctxKeyIdemReplay, true)
	if !IsReplay(c) {
		t.Fatal("expected IsReplay=true")
	}

	if got := UserIDFrom(c); got != "demo-user" {
		t.Fatalf("fallback user mismatch: %q", got)
	}
	c.Set("userID", "u1")
	if got := UserIDFrom(c); got != "u1" {
		t.Fatalf("context user mismatch: %q", got)
	}
}

func TestRequireIdempotencyKey_MissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/publish", RequireIdempotencyKey(nil), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/publish", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["code"] != "missing_idempotency_key" {
		t.Fatalf("unexpected code %q", body["code"])
	}
}

func TestRequireIdempotencyKey_InvalidHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/publish", RequireIdempotencyKey(nil), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	req.Header.Set(HeaderIdempotencyKey, "spaces not allowed")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid key, got %d", w.Code)
	}
}

func TestRequireIdempotencyKey_StashesKeyAndFlagsReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var sawUser, sawKey string
	lookup := func(_ context.Context, userID, key string) (bool, error) {
		sawUser, sawKey = userID, key
		return true, nil
	}

	r := gin.New()
	r.POST("/publish", RequireIdempotencyKey(lookup), func(c *gin.Context) {
		key, ok := GetIdempotencyKey(c)
		if !ok || key != "retry-1" {
			t.Errorf("key not stashed: %q ok=%v", key, ok)
		}
		if !IsReplay(c) || !IsRateBypass(c) {
			t.Error("replay and rate-bypass flags not set")
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	req.Header.Set(HeaderIdempotencyKey, "retry-1")
	req.Header.Set("X-User-ID", "admin")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if sawUser != "admin" || sawKey != "retry-1" {
		t.Fatalf("lookup saw (%q, %q)", sawUser, sawKey)
	}
}

func TestRequireIdempotencyKey_LookupErrorDoesNotBlock(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lookup := func(context.Context, string, string) (bool, error) {
		return false, context.DeadlineExceeded
	}

	r := gin.New()
	r.POST("/publish", RequireIdempotencyKey(lookup), func(c *gin.Context) {
		if IsReplay(c) {
			t.Error("lookup failure must not mark a replay")
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	req.Header.Set(HeaderIdempotencyKey, "retry-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

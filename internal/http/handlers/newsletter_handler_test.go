package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
	"github.com/tbourn/go-newsletter-backend/internal/http/middleware"
	"github.com/tbourn/go-newsletter-backend/internal/repo"
)

// stubPublisher returns a canned response or error.
type stubPublisher struct {
	resp     *domain.SavedResponse
	replayed bool
	err      error

	gotUser, gotKey, gotTitle string
}

func (s *stubPublisher) Submit(_ context.Context, userID, key, title, _, _ string) (*domain.SavedResponse, bool, error) {
	s.gotUser, s.gotKey, s.gotTitle = userID, key, title
	if s.err != nil {
		return nil, false, s.err
	}
	return s.resp, s.replayed, nil
}

type stubSubscriber struct {
	sub        *domain.Subscription
	subErr     error
	confirmErr error
	gotToken   string
}

func (s *stubSubscriber) Subscribe(_ context.Context, _, _ string) (*domain.Subscription, error) {
	return s.sub, s.subErr
}

func (s *stubSubscriber) Confirm(_ context.Context, token string) error {
	s.gotToken = token
	return s.confirmErr
}

func publishEngine(pub PublisherService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(pub, &stubSubscriber{})
	r.POST("/admin/newsletters", middleware.RequireIdempotencyKey(nil), h.PublishNewsletter)
	return r
}

func publishReq(key string, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/admin/newsletters", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.HeaderIdempotencyKey, key)
	}
	req.Header.Set("X-User-ID", "admin")
	return req
}

const validPublishBody = `{"title":"Issue","html_content":"<p>hi</p>","text_content":"hi"}`

func TestPublishNewsletter_ServesRecordedResponseVerbatim(t *testing.T) {
	pub := &stubPublisher{
		resp: &domain.SavedResponse{
			StatusCode: http.StatusCreated,
			Headers: []domain.HeaderPair{
				{Name: "Content-Type", Value: []byte("application/json; charset=utf-8")},
				{Name: "X-Custom", Value: []byte("v1")},
			},
			Body: []byte(`{"issue_id":"abc","status":"published"}`),
		},
	}
	r := publishEngine(pub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishReq("retry-1", validPublishBody))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if got := w.Body.String(); got != `{"issue_id":"abc","status":"published"}` {
		t.Fatalf("body not verbatim: %q", got)
	}
	if got := w.Header().Get("X-Custom"); got != "v1" {
		t.Fatalf("recorded header lost: %q", got)
	}
	if w.Header().Get(middleware.HeaderIdempotencyReplayed) != "" {
		t.Fatal("fresh response must not carry the replay marker")
	}
	if pub.gotUser != "admin" || pub.gotKey != "retry-1" || pub.gotTitle != "Issue" {
		t.Fatalf("service saw (%q, %q, %q)", pub.gotUser, pub.gotKey, pub.gotTitle)
	}
}

func TestPublishNewsletter_ReplayCarriesMarker(t *testing.T) {
	pub := &stubPublisher{
		resp: &domain.SavedResponse{
			StatusCode: http.StatusCreated,
			Body:       []byte(`{"issue_id":"abc","status":"published"}`),
		},
		replayed: true,
	}
	r := publishEngine(pub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishReq("retry-1", validPublishBody))

	if got := w.Header().Get(middleware.HeaderIdempotencyReplayed); got != "true" {
		t.Fatalf("expected replay marker, got %q", got)
	}
}

func TestPublishNewsletter_MissingKeyRejected(t *testing.T) {
	r := publishEngine(&stubPublisher{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishReq("", validPublishBody))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", w.Code)
	}
}

func TestPublishNewsletter_BadBodyRejected(t *testing.T) {
	r := publishEngine(&stubPublisher{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishReq("retry-1", `{"title":""}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete body, got %d", w.Code)
	}
}

func TestPublishNewsletter_IncompleteClaimIs500(t *testing.T) {
	r := publishEngine(&stubPublisher{err: repo.ErrMissingSavedResponse})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, publishReq("retry-1", validPublishBody))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Code != ErrCodePublishIncomplete {
		t.Fatalf("expected %q, got %q", ErrCodePublishIncomplete, body.Code)
	}
}

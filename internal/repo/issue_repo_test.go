package repo

import (
	"context"
	"errors"
	"testing"
)

func TestCreateAndGetIssue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	issue, err := CreateIssue(db, "Launch week", "plain text", "<h1>html</h1>", testNow())
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if issue.ID == "" {
		t.Fatal("expected generated issue id")
	}

	got, err := GetIssue(ctx, db, issue.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.Title != "Launch week" || got.TextContent != "plain text" || got.HTMLContent != "<h1>html</h1>" {
		t.Fatalf("unexpected issue: %+v", got)
	}

	if _, err := GetIssue(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

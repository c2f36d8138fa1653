package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestFromContext(t *testing.T) {
	// Test with nil context
	l := FromContext(nil)
	if l == nil {
		t.Error("Expected non-nil logger from nil context")
	}

	// Test with empty context
	ctx := context.Background()
	l = FromContext(ctx)
	if l == nil {
		t.Error("Expected non-nil logger from empty context")
	}

	// Test with reload id
	ctx = WithReloadID(context.Background(), "reload-123")
	l = FromContext(ctx)
	if l == nil {
		t.Error("Expected non-nil logger from context with reload id")
	}

	// Test with feed url
	ctx = WithFeedURL(context.Background(), "https://example.com/feed.xml")
	l = FromContext(ctx)
	if l == nil {
		t.Error("Expected non-nil logger from context with feed url")
	}

	// Test with both values
	ctx = WithReloadID(context.Background(), "reload-123")
	ctx = WithFeedURL(ctx, "https://example.com/feed.xml")
	l = FromContext(ctx)
	if l == nil {
		t.Error("Expected non-nil logger from context with both values")
	}
}

func TestContextKeys(t *testing.T) {
	ctx := WithReloadID(context.Background(), "reload-123")
	reloadID, ok := GetReloadID(ctx)
	if !ok || reloadID != "reload-123" {
		t.Errorf("Expected reload id 'reload-123', got '%s', ok=%v", reloadID, ok)
	}

	ctx = WithFeedURL(context.Background(), "https://example.com/feed.xml")
	feedURL, ok := GetFeedURL(ctx)
	if !ok || feedURL != "https://example.com/feed.xml" {
		t.Errorf("Expected feed url, got '%s', ok=%v", feedURL, ok)
	}
}

func TestNew(t *testing.T) {
	l := New(slog.LevelDebug)
	if l == nil {
		t.Error("Expected non-nil logger from New")
	}

	l = New(slog.LevelInfo)
	if l == nil {
		t.Error("Expected non-nil logger from New with Info level")
	}
}

package logger

import "context"

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// ReloadIDKey identifies a single Controller.Reload invocation, shared
	// by every feed processed within it.
	ReloadIDKey ContextKey = "reload_id"
	// FeedURLKey identifies the feed a worker is currently processing.
	FeedURLKey ContextKey = "feed_url"
)

// WithReloadID attaches a reload invocation id to ctx.
func WithReloadID(ctx context.Context, reloadID string) context.Context {
	return context.WithValue(ctx, ReloadIDKey, reloadID)
}

// WithFeedURL attaches the feed URL currently being processed to ctx.
func WithFeedURL(ctx context.Context, feedURL string) context.Context {
	return context.WithValue(ctx, FeedURLKey, feedURL)
}

// GetReloadID extracts the reload id from ctx.
func GetReloadID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(ReloadIDKey).(string)
	return v, ok
}

// GetFeedURL extracts the feed URL from ctx.
func GetFeedURL(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(FeedURLKey).(string)
	return v, ok
}

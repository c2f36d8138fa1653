// Package logger provides a process-wide slog.Logger and a context
// helper that pre-populates reload/feed identifiers onto log lines, so a
// reload worker's log output can be traced back to the feed it was
// processing without threading a logger through every call.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	defaultWriter io.Writer = os.Stdout
	writerMu      sync.RWMutex
	logFile       *os.File
)

// InitFromEnv configures file logging based on the NEWSDESK_LOG_FILE
// environment variable, falling back to stdout-only if unset.
func InitFromEnv() error {
	path := os.Getenv("NEWSDESK_LOG_FILE")
	if path == "" {
		return nil
	}
	return InitWithFile(path)
}

// InitWithFile configures the logger to write to both stdout and filePath.
func InitWithFile(filePath string) error {
	writerMu.Lock()
	defer writerMu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	logFile = f
	defaultWriter = io.MultiWriter(os.Stdout, f)
	return nil
}

// Close closes the log file if one was opened. Call on shutdown.
func Close() error {
	writerMu.Lock()
	defer writerMu.Unlock()

	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		defaultWriter = os.Stdout
		return err
	}
	return nil
}

func getWriter() io.Writer {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return defaultWriter
}

// New creates a slog.Logger at the given level using the configured writer.
func New(level slog.Level) *slog.Logger {
	handler := slog.NewTextHandler(getWriter(), &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// FromContext returns a logger pre-populated with any reload/feed
// identifiers stashed on ctx by WithReloadID/WithFeedURL.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return New(slog.LevelInfo)
	}

	base := New(slog.LevelDebug)

	var args []any
	if reloadID, ok := GetReloadID(ctx); ok {
		args = append(args, "reload_id", reloadID)
	}
	if feedURL, ok := GetFeedURL(ctx); ok {
		args = append(args, "feed_url", feedURL)
	}

	if len(args) == 0 {
		return base
	}
	return base.With(args...)
}

// Must panics if err is non-nil; used at startup where logger creation
// failure is fatal.
func Must(l *slog.Logger, err error) *slog.Logger {
	if err != nil {
		panic("newsdesk: failed to create logger: " + err.Error())
	}
	return l
}

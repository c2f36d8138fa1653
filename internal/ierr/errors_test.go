package ierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without cause",
			appErr:   ErrFeedNotFound,
			expected: "newsdesk: db: feed not found",
		},
		{
			name:     "error with cause",
			appErr:   ErrFeedNotFound.WithCause(errors.New("no rows")),
			expected: "newsdesk: db: feed not found: no rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	appErr := ErrFeedNotFound.WithCause(cause)

	assert.Equal(t, cause, appErr.Unwrap())
	assert.True(t, errors.Is(appErr, cause))
}

func TestAppError_WithCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	appErr := ErrFeedBodyTooLarge.WithCause(cause)

	assert.Equal(t, ErrFeedBodyTooLarge.Kind, appErr.Kind)
	assert.Equal(t, ErrFeedBodyTooLarge.Message, appErr.Message)
	assert.Equal(t, cause, appErr.cause)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		appErr     *AppError
		expectKind Kind
	}{
		{"ErrFeedNotFound", ErrFeedNotFound, KindDb},
		{"ErrAlreadySubscribed", ErrAlreadySubscribed, KindConfig},
		{"ErrUnsupportedFormat", ErrUnsupportedFormat, KindParse},
		{"ErrFeedBodyTooLarge", ErrFeedBodyTooLarge, KindTransport},
		{"ErrAttributeUnavailable", ErrAttributeUnavailable, KindFilterEval},
		{"ErrInvalidRegex", ErrInvalidRegex, KindFilterEval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectKind, tt.appErr.Kind)
			assert.NotEmpty(t, tt.appErr.Message)
		})
	}
}

func TestNew(t *testing.T) {
	appErr := New(KindConfig, "custom error")

	assert.Equal(t, KindConfig, appErr.Kind)
	assert.Equal(t, "custom error", appErr.Message)
	assert.Nil(t, appErr.cause)
}

func TestErrorWrapping(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := ErrFeedNotFound.WithCause(originalErr)

	assert.True(t, errors.Is(appErr, originalErr))

	var targetAppErr *AppError
	require.True(t, errors.As(appErr, &targetAppErr))
	assert.Equal(t, ErrFeedNotFound.Kind, targetAppErr.Kind)
	assert.Equal(t, originalErr, targetAppErr.cause)
}

func TestLockError_Error(t *testing.T) {
	err := &LockError{PID: 4242}
	assert.Contains(t, err.Error(), "4242")
}

func TestDbError_Error(t *testing.T) {
	cause := errors.New("database is locked")
	err := NewDbError("UPDATE items SET unread = ?", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "database is locked")
}

func TestParseError_Error(t *testing.T) {
	err := &ParseError{Offset: 12, Kind: ExpectedCloseBlock}
	assert.Contains(t, err.Error(), "12")
	assert.Contains(t, err.Error(), "expected ')'")
}

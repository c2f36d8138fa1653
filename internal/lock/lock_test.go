package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsilvers/newsdesk/internal/ierr"
)

func TestAcquireWritesPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsdesk.lock")

	l, err := Acquire(path)
	require.NoError(t, err)
	defer l.Release()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), mustAtoi(t, string(contents)))
}

func TestAcquireConflictReturnsLockError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsdesk.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(path)
	require.Error(t, err)

	var lockErr *ierr.LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, os.Getpid(), lockErr.PID)
}

func TestReleaseThenReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsdesk.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := Acquire(path)
	require.NoError(t, err)
	defer second.Release()
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// Package lock implements the process-wide filesystem lock that keeps
// two newsdesk instances from writing the same cache concurrently.
package lock

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/tsilvers/newsdesk/internal/ierr"
)

// Lock holds an exclusive, non-blocking flock on a path for the lifetime
// of the process.
type Lock struct {
	path string
	f    *os.File
}

// Acquire opens (creating if needed) the lock file at path and takes a
// non-blocking exclusive flock on it. If another process already holds
// it, the existing lock file's pid line is read and returned as
// ierr.LockError so the caller can report which process is holding it.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, ierr.New(ierr.KindLock, "opening lock file").WithCause(err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		pid := readPID(f)
		f.Close()
		return nil, &ierr.LockError{PID: pid}
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, ierr.New(ierr.KindLock, "truncating lock file").WithCause(err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		f.Close()
		return nil, ierr.New(ierr.KindLock, "writing pid to lock file").WithCause(err)
	}

	return &Lock{path: path, f: f}, nil
}

// Release drops the flock and closes the lock file. It does not remove
// the file, so the next instance's Acquire can still read a stale pid if
// something goes wrong with the unlock.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return ierr.New(ierr.KindLock, "releasing lock").WithCause(err)
	}
	return l.f.Close()
}

func readPID(f *os.File) int {
	buf := make([]byte, 32)
	n, err := f.ReadAt(buf, 0)
	if err != nil && n == 0 {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	return pid
}

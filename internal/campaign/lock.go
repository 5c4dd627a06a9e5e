package campaign

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Lock is an advisory file lock shared by every dialer process that uses
// the same state directory.
type Lock struct {
	path string
	fl   *flock.Flock
}

// NewLock prepares a lock at path without acquiring it.
func NewLock(path string) *Lock {
	return &Lock{path: path, fl: flock.New(path)}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// TryLock acquires the lock without waiting.
func (l *Lock) TryLock() (bool, error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	return ok, nil
}

// Unlock releases the lock.
func (l *Lock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}

package ops

import (
	"fmt"

	"github.com/gofrs/flock"
)

// DirLock is an advisory lock serializing report writes into one output
// directory across processes.
type DirLock struct {
	flock *flock.Flock
	path  string
}

// NewDirLock creates a lock backed by the file at path.
func NewDirLock(path string) *DirLock {
	return &DirLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Lock blocks until the lock is acquired.
func (l *DirLock) Lock() error {
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	return nil
}

// Unlock releases the lock.
func (l *DirLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

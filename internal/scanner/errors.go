package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRoot matches every *InvalidRootError.
	ErrInvalidRoot = errors.New("invalid scan root")
	// ErrAlreadyCompleted matches every *AlreadyCompletedError.
	ErrAlreadyCompleted = errors.New("scan session already completed")
	// ErrSessionRunning is returned when Run is called on a running session.
	ErrSessionRunning = errors.New("scan session is already running")
	// ErrNotDirectory is wrapped by InvalidRootError when the root is a file.
	ErrNotDirectory = errors.New("not a directory")
)

// InvalidRootError reports a root that does not exist or is not a directory.
// Traversal never starts.
type InvalidRootError struct {
	Path string
	Err  error
}

func (e *InvalidRootError) Error() string {
	return fmt.Sprintf("invalid root %q: %v", e.Path, e.Err)
}

func (e *InvalidRootError) Unwrap() error        { return e.Err }
func (e *InvalidRootError) Is(target error) bool { return target == ErrInvalidRoot }

// AlreadyCompletedError is returned when a completed session is run again.
type AlreadyCompletedError struct {
	Root string
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("scan of %q already completed; sessions are single-use", e.Root)
}

func (e *AlreadyCompletedError) Is(target error) bool { return target == ErrAlreadyCompleted }

// DirectoryReadError reports a directory whose children could not be
// listed. The subtree is skipped.
type DirectoryReadError struct {
	Path string
	Err  error
}

func (e *DirectoryReadError) Error() string {
	return fmt.Sprintf("read directory %q: %v", e.Path, e.Err)
}

func (e *DirectoryReadError) Unwrap() error { return e.Err }

// FileStatError reports a discovered file that could not be stat'ed.
type FileStatError struct {
	Path string
	Err  error
}

func (e *FileStatError) Error() string {
	return fmt.Sprintf("stat %q: %v", e.Path, e.Err)
}

func (e *FileStatError) Unwrap() error { return e.Err }

// FileHashError reports a discovered file whose contents could not be read.
type FileHashError struct {
	Path string
	Err  error
}

func (e *FileHashError) Error() string {
	return fmt.Sprintf("hash %q: %v", e.Path, e.Err)
}

func (e *FileHashError) Unwrap() error { return e.Err }

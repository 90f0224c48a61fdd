package types

import (
	"errors"
	"fmt"
)

// ErrNotDirectory is the reason attached to a DirectoryNotFoundError when the
// root exists but is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// DirectoryNotFoundError is returned before scanning when the root path
// does not exist or is not a directory.
type DirectoryNotFoundError struct {
	Path string
	Err  error
}

func (e *DirectoryNotFoundError) Error() string {
	if errors.Is(e.Err, ErrNotDirectory) {
		return fmt.Sprintf("%s is not a directory", e.Path)
	}
	return fmt.Sprintf("specified directory does not exist: %s", e.Path)
}

func (e *DirectoryNotFoundError) Unwrap() error { return e.Err }

// IOError is returned when a file cannot be opened or read while hashing.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

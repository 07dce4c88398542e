// Package binsyncerr defines the error taxonomy shared across the chunker,
// manifest, pack, provider, planner, and executor packages (spec §7).
package binsyncerr

import "fmt"

// FileNotFoundError reports a missing file at the given path.
type FileNotFoundError struct {
	Path string
}

func (e FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// ErrFileNotFound constructs a FileNotFoundError.
func ErrFileNotFound(path string) error {
	return FileNotFoundError{Path: path}
}

// DirectoryNotFoundError reports a missing parent directory.
type DirectoryNotFoundError struct {
	Path string
}

func (e DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("directory not found: %s", e.Path)
}

// ErrDirectoryNotFound constructs a DirectoryNotFoundError.
func ErrDirectoryNotFound(path string) error {
	return DirectoryNotFoundError{Path: path}
}

// ChunkNotFoundError reports a chunk id that a provider's index cannot
// resolve. Fatal: it means the manifest and provider disagree (§7).
type ChunkNotFoundError struct {
	ChunkID uint64
}

func (e ChunkNotFoundError) Error() string {
	return fmt.Sprintf("chunk not found: %d", e.ChunkID)
}

// ErrChunkNotFound constructs a ChunkNotFoundError.
func ErrChunkNotFound(chunkID uint64) error {
	return ChunkNotFoundError{ChunkID: chunkID}
}

// AccessDeniedError wraps a filesystem permission or I/O failure.
type AccessDeniedError struct {
	Path string
	Err  error
}

func (e AccessDeniedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("access denied: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("access denied: %s", e.Path)
}

func (e AccessDeniedError) Unwrap() error {
	return e.Err
}

// ErrAccessDenied constructs an AccessDeniedError.
func ErrAccessDenied(path string, err error) error {
	return AccessDeniedError{Path: path, Err: err}
}

// Unspecified is returned for failures with no more specific kind, such as
// a provider returning a chunk whose length does not match the plan.
var Unspecified = fmt.Errorf("unspecified binsync error")

// Wrap attaches a message to an underlying error, matching the teacher's
// WrapError helper.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

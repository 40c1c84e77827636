package extract

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Failure taxonomy for per-file work. Errors are marked with these sentinels
// so callers can test them with errors.Is.
var (
	// ErrParse marks a file whose syntax tree could not be built.
	ErrParse = errors.New("parse failure")
	// ErrIO marks a file that could not be read or written.
	ErrIO = errors.New("io failure")
)

// FileError records one file's failure inside a directory-wide operation.
// It never stops the walk.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Kind returns "parse", "io" or "internal".
func (e *FileError) Kind() string {
	switch {
	case errors.Is(e.Err, ErrParse):
		return "parse"
	case errors.Is(e.Err, ErrIO):
		return "io"
	default:
		return "internal"
	}
}

// MarkParse wraps err as a parse failure.
func MarkParse(err error) error {
	return errors.Mark(errors.Wrap(err, "parsing"), ErrParse)
}

// IOError wraps err as an IO failure for path.
func IOError(path string, err error, op string) *FileError {
	return &FileError{Path: path, Err: errors.Mark(errors.Wrap(err, op), ErrIO)}
}

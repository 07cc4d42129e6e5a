package archive

import (
	"errors"
	"fmt"
)

// Sentinel error kinds surfaced by the engine. Callers classify with
// errors.Is; the wrapped chain keeps the original cause.
var (
	// ErrInputValidation marks a rejected caller-supplied argument.
	ErrInputValidation = errors.New("invalid input")

	// ErrNotFound marks a top-level input path that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPathTraversal marks an archive entry whose name would resolve
	// outside the extraction destination.
	ErrPathTraversal = errors.New("path traversal")

	// ErrCodec marks a malformed container or a checksum mismatch
	// reported by the container codec during a full entry read.
	ErrCodec = errors.New("codec error")

	// ErrIO marks a filesystem failure.
	ErrIO = errors.New("io error")

	// ErrCancelled marks an operation aborted at a cancellation check.
	// Side effects performed before the check are not undone.
	ErrCancelled = errors.New("operation cancelled")

	// ErrInternal marks a recovered fault that has no better category.
	ErrInternal = errors.New("internal error")
)

// wrap attaches a kind sentinel to err so callers can classify the
// failure with errors.Is while keeping the original cause in the chain.
func wrap(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}

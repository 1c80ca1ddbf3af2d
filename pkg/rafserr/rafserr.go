// Package rafserr defines the typed error kinds shared across the merger and
// cache packages (spec.md §7). It follows the teacher's
// pkg/blobserver/proxycache style of typed, wrapped errors rather than plain
// strings, so callers can branch on Kind with errors.As.
package rafserr

import "fmt"

// Kind classifies a rafs error per spec.md §7.
type Kind string

const (
	InputValidation      Kind = "input_validation"
	IncompatibleManifest Kind = "incompatible_manifest"
	ManifestIO           Kind = "manifest_io"
	BlobConstraint       Kind = "blob_constraint"
	BackendIO            Kind = "backend_io"
	Decompression        Kind = "decompression"
	DigestMismatch       Kind = "digest_mismatch"
	Unsupported          Kind = "unsupported"
)

// Error is the concrete error type returned by this module. Op names the
// operation that failed (e.g. "merge", "read"); Err is the wrapped cause, if
// any.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rafs: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("rafs: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, letting callers
// write errors.Is(err, rafserr.New(rafserr.DigestMismatch, "", nil)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf constructs an *Error of the given kind with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

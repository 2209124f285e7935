package util

import "errors"

// Sentinel errors forming the taxonomy of §7. Callers should use
// errors.Is against these; wrapping (github.com/pkg/errors) is expected
// to add request-specific context on top.
var (
	// ErrPathNotFound is returned by the resolver when a path component
	// cannot be found under its parent tree.
	ErrPathNotFound = errors.New("path not found")

	// ErrPathNotDirectory is returned when a path component resolves to
	// a blob rather than a tree.
	ErrPathNotDirectory = errors.New("path component is not a directory")

	// ErrRefHashConflict is returned when a merge's from_hash no longer
	// matches the ref it is merging against.
	ErrRefHashConflict = errors.New("ref hash conflict")

	// ErrMRNotFound is returned when an operation references an MR id
	// that does not exist, or when a merge finds the MR's tip commit
	// missing from the store.
	ErrMRNotFound = errors.New("merge request not found")

	// ErrMRNotOpen is returned when an operation requires an MR to be
	// Open but it is Merged or Closed.
	ErrMRNotOpen = errors.New("merge request is not open")

	// ErrPackMismatch is returned when the pack encoder's declared
	// object count disagrees with the number of entries actually sent.
	ErrPackMismatch = errors.New("pack object count mismatch")

	// ErrProtocolError wraps malformed pack input from the decoder.
	ErrProtocolError = errors.New("malformed pack stream")
)

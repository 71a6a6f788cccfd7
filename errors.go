package blockstore

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Use errors.Is against these; the wrapped message
// carries the exact trigger string from the spec this repo implements.
var (
	// ErrConfig marks a construction-time configuration problem: a
	// non-absolute location, a non-positive max file length, or an
	// unknown payload type.
	ErrConfig = errors.New("config error")

	// ErrRange marks a value outside its valid range: a record field
	// that doesn't fit in 32 bits, a segment number at or past 100000,
	// or an out-of-bounds read.
	ErrRange = errors.New("range error")

	// ErrWriteTooLarge marks a payload whose header+body would exceed
	// the store's configured max file length.
	ErrWriteTooLarge = errors.New("write too large")

	// ErrWriteConflict marks a write that lost a race for the per-type
	// write lock.
	ErrWriteConflict = errors.New("write conflict")

	// ErrShortIO marks a header or body read/write that returned fewer
	// bytes than requested.
	ErrShortIO = errors.New("short io")

	// ErrAlreadyCommitted marks reuse of a batch that already committed.
	ErrAlreadyCommitted = errors.New("already committed")

	// ErrUpstreamIO wraps any error surfaced by the file or KV substrate.
	ErrUpstreamIO = errors.New("upstream io error")

	// ErrAbstractNotImplemented marks an operation the concrete back-end
	// doesn't support.
	ErrAbstractNotImplemented = errors.New("not implemented")
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfig}, args...)...)
}

func rangeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrRange}, args...)...)
}

func writeTooLargeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrWriteTooLarge}, args...)...)
}

func writeConflictErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrWriteConflict}, args...)...)
}

func shortIOErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrShortIO}, args...)...)
}

func alreadyCommittedErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrAlreadyCommitted}, args...)...)
}

func upstreamIOErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %v", ErrUpstreamIO, fmt.Errorf(format, args...))
}

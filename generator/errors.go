package generator

import (
	"github.com/pkg/errors"
)

// UserError is the panic payload for mistakes recoverable by the caller:
// invalid names, phase violations, mismatches against already-fixed
// properties, unknown generators, and so on. The message always names the
// offending field or parameter. Catch it with exceptions.TryCatch[UserError].
type UserError struct {
	err error
}

func (e UserError) Error() string { return e.err.Error() }

// Unwrap exposes the underlying error (which carries a stack trace).
func (e UserError) Unwrap() error { return e.err }

// InternalError is the panic payload for broken framework invariants. It is
// never expected from correct external use: seeing one means a bug in the
// framework or in the code embedding it, not a caller mistake.
type InternalError struct {
	err error
}

func (e InternalError) Error() string { return e.err.Error() }

// Unwrap exposes the underlying error (which carries a stack trace).
func (e InternalError) Unwrap() error { return e.err }

func userErrorf(format string, args ...any) {
	panic(UserError{err: errors.Errorf(format, args...)})
}

func internalErrorf(format string, args ...any) {
	panic(InternalError{err: errors.Errorf("internal error: "+format, args...)})
}

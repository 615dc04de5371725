package errors

import (
	"context"
	stderrors "errors"
)

// FromError converts any error to Errno.
// Context deadline maps to ErrRequestTimeout, anything unknown to ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if stderrors.As(err, &e) {
		return e
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrRequestTimeout.WithCause(err)
	}
	return ErrInternal.WithCause(err)
}

// IsCode checks if the error has the given error code.
func IsCode(err error, code int) bool {
	var e *Errno
	return stderrors.As(err, &e) && e.Code == code
}

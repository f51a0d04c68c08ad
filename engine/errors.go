package engine

import (
	"errors"
	"strconv"
)

// Errno is an engine error number. Values match MDBX.
type Errno int

const (
	// EACCES: write attempted in a read-only transaction
	EACCES Errno = 13
	// EINVAL: invalid argument or closed handle
	EINVAL Errno = 22

	KeyExist     Errno = -30799
	NotFound     Errno = -30798
	Incompatible Errno = -30784
	BadTxn       Errno = -30782
	BadValSize   Errno = -30781
	BadDBI       Errno = -30780
	Problem      Errno = -30779
	KeyMismatch  Errno = -30418
)

var errnoMessages = map[Errno]string{
	EACCES:       "permission denied",
	EINVAL:       "invalid argument",
	KeyExist:     "key/data pair already exists",
	NotFound:     "key/data pair not found",
	Incompatible: "incompatible operation or flags",
	BadTxn:       "transaction is invalid",
	BadValSize:   "invalid key or value size",
	BadDBI:       "invalid DBI handle",
	Problem:      "unexpected internal error",
	KeyMismatch:  "key mismatch with cursor position",
}

// Error returns the error message for an Errno.
func (e Errno) Error() string {
	if msg, ok := errnoMessages[e]; ok {
		return msg
	}
	return "errno " + strconv.Itoa(int(e))
}

// Is reports whether e matches target.
func (e Errno) Is(target error) bool {
	if t, ok := target.(Errno); ok {
		return e == t
	}
	return false
}

// OpError wraps an error with operation context.
type OpError struct {
	Op  string
	Err error
}

// Error returns the error message.
func (e *OpError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Is reports whether e matches target.
func (e *OpError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// Unwrap returns the wrapped error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Fail returns an *OpError for op carrying errno.
func Fail(op string, errno Errno) error {
	return &OpError{Op: op, Err: errno}
}

// ErrnoOf extracts the Errno carried by err. ok is false when err carries
// none.
func ErrnoOf(err error) (errno Errno, ok bool) {
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

// IsNotFound reports whether err carries NotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, NotFound)
}

// IsKeyExist reports whether err carries KeyExist.
func IsKeyExist(err error) bool {
	return errors.Is(err, KeyExist)
}

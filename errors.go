package bufdb

import (
	"errors"
	"fmt"

	"github.com/Giulio2002/bufdb/engine"
)

// Error represents a bufdb error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bufdb: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("bufdb: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so sentinel
// comparisons with errors.Is work on wrapped errors.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// ErrorCode represents an error code. Engine failures keep the MDBX numbers
// reported by the engine; buffer and cursor failures use errno values.
type ErrorCode int

// Error codes
const (
	// Success indicates the operation completed successfully
	Success ErrorCode = 0

	// ErrPermissionDenied: a write was attempted through a read-only cursor
	// or transaction (EACCES)
	ErrPermissionDenied ErrorCode = 13

	// ErrInvalidArgument: a buffer was constructed over non-direct memory
	// (EINVAL)
	ErrInvalidArgument ErrorCode = 22

	// ErrOutOfRange: an accessor reached past the buffer capacity (ERANGE)
	ErrOutOfRange ErrorCode = 34

	// ErrBadCursor: the cursor or its transaction has been closed (EBADF)
	ErrBadCursor ErrorCode = 9

	// ErrNotPositioned: a read accessor was used on an unpositioned cursor
	ErrNotPositioned ErrorCode = -30700

	// ErrKeyExist indicates the key/data pair already exists
	ErrKeyExist ErrorCode = -30799

	// ErrNotFound indicates the key/data pair was not found (EOF)
	ErrNotFound ErrorCode = -30798

	// ErrIncompatible indicates incompatible operation or flags
	ErrIncompatible ErrorCode = -30784

	// ErrBadTxn indicates the transaction is invalid
	ErrBadTxn ErrorCode = -30782

	// ErrBadValSize indicates invalid key or data size
	ErrBadValSize ErrorCode = -30781

	// ErrBadDBI indicates the table handle is invalid
	ErrBadDBI ErrorCode = -30780

	// ErrProblem indicates an unexpected internal error
	ErrProblem ErrorCode = -30779

	// ErrKeyMismatch indicates an out-of-order append
	ErrKeyMismatch ErrorCode = -30418
)

// Error descriptions
var errorMessages = map[ErrorCode]string{
	Success:             "success",
	ErrPermissionDenied: "permission denied",
	ErrInvalidArgument:  "invalid argument",
	ErrOutOfRange:       "offset out of range",
	ErrBadCursor:        "cursor is closed",
	ErrNotPositioned:    "cursor is not positioned",
	ErrKeyExist:         "key/data pair already exists",
	ErrNotFound:         "key/data pair not found",
	ErrIncompatible:     "incompatible operation or flags",
	ErrBadTxn:           "transaction is invalid",
	ErrBadValSize:       "invalid key or value size",
	ErrBadDBI:           "invalid DBI handle",
	ErrProblem:          "unexpected internal error",
	ErrKeyMismatch:      "key mismatch with cursor position",
}

// NewError creates a new Error with the given code
func NewError(code ErrorCode) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = fmt.Sprintf("unknown error code %d", code)
	}
	return &Error{Code: code, Message: msg}
}

// WrapError creates a new Error wrapping another error
func WrapError(code ErrorCode, err error) *Error {
	e := NewError(code)
	e.Err = err
	return e
}

// Sentinels for errors.Is.
var (
	ErrPermissionDeniedError = NewError(ErrPermissionDenied)
	ErrInvalidArgumentError  = NewError(ErrInvalidArgument)
	ErrOutOfRangeError       = NewError(ErrOutOfRange)
	ErrBadCursorError        = NewError(ErrBadCursor)
	ErrNotPositionedError    = NewError(ErrNotPositioned)
	ErrNotFoundError         = NewError(ErrNotFound)
	ErrKeyExistError         = NewError(ErrKeyExist)
	ErrBadDBIError           = NewError(ErrBadDBI)
	ErrKeyMismatchError      = NewError(ErrKeyMismatch)
)

// fromEngine converts an engine error, keeping its MDBX number as the code.
func fromEngine(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errno, ok := engine.ErrnoOf(err); ok {
		return WrapError(ErrorCode(errno), err)
	}
	return WrapError(ErrProblem, err)
}

func is(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool { return is(err, ErrNotFound) }

// IsKeyExist returns true if the error is ErrKeyExist
func IsKeyExist(err error) bool { return is(err, ErrKeyExist) }

// IsPermissionDenied returns true if the error is ErrPermissionDenied
func IsPermissionDenied(err error) bool { return is(err, ErrPermissionDenied) }

// IsInvalidArgument returns true if the error is ErrInvalidArgument
func IsInvalidArgument(err error) bool { return is(err, ErrInvalidArgument) }

// IsOutOfRange returns true if the error is ErrOutOfRange
func IsOutOfRange(err error) bool { return is(err, ErrOutOfRange) }

// IsNotPositioned returns true if the error is ErrNotPositioned
func IsNotPositioned(err error) bool { return is(err, ErrNotPositioned) }

// IsBadCursor returns true if the error is ErrBadCursor
func IsBadCursor(err error) bool { return is(err, ErrBadCursor) }

// IsEngineError reports whether err originated in the storage engine.
func IsEngineError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	_, ok := engine.ErrnoOf(e.Err)
	return ok
}

// Code returns the error code from an error, or ErrProblem if not a bufdb error
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrProblem
}

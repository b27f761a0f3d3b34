package lmkv

import (
	"errors"
	"fmt"

	"github.com/ostafen/lmkv/native"
)

// Errno is a status code reported by the engine.
type Errno int

const (
	KeyExist     Errno = native.KeyExist
	NotFound     Errno = native.NotFound
	Corrupted    Errno = native.Corrupted
	MapFull      Errno = native.MapFull
	DBsFull      Errno = native.DBsFull
	ReadersFull  Errno = native.ReadersFull
	TxnFull      Errno = native.TxnFull
	Incompatible Errno = native.Incompatible
	BadTxn       Errno = native.BadTxn
	BadValSize   Errno = native.BadValSize

	EIO    Errno = native.EIO
	ENOMEM Errno = native.ENOMEM
	EACCES Errno = native.EACCES
	EINVAL Errno = native.EINVAL
)

func (e Errno) Error() string {
	return native.Strerror(int(e))
}

// Error is returned whenever the engine reports a nonzero status.
type Error struct {
	Op    string
	Errno Errno
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Errno.Error()
}

func (e *Error) Unwrap() error {
	return e.Errno
}

func operrno(op string, rc int) error {
	if rc == native.Success {
		return nil
	}
	return &Error{Op: op, Errno: Errno(rc)}
}

var (
	// ErrInvalidState is returned for operations on a transaction that is not
	// in a state to serve them: released, reset, or of the wrong kind.
	ErrInvalidState = errors.New("lmkv: invalid transaction state")
	ErrBadCursor    = fmt.Errorf("%w: cursor not bound to a live transaction", ErrInvalidState)
	ErrClosed       = errors.New("lmkv: environment closed")
)

func invalidState(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidState}, args...)...)
}

// IsNotFound reports whether err carries NotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, NotFound)
}

// IsKeyExist reports whether err carries KeyExist.
func IsKeyExist(err error) bool {
	return errors.Is(err, KeyExist)
}

// IsErrno reports whether err carries code.
func IsErrno(err error, code Errno) bool {
	return errors.Is(err, code)
}

// Package store defines the ordered key/value backend the engine persists
// through. Keys are compared bytewise.
package store

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

type Store interface {
	Begin(update bool) (Tx, error)
	Close() error
}

// UpdateTx only supports update and delete operations
type UpdateTx interface {
	Set(key, value []byte) error
	Delete(key []byte) error
	Commit() error
	Rollback() error
}

// Tx is a backend transaction. Slices returned by Get and Item remain valid
// until the transaction ends or is next modified.
type Tx interface {
	UpdateTx
	Get(key []byte) ([]byte, error)
	Cursor(forward bool) (Cursor, error)
}

// Cursor walks keys in one direction. A forward cursor's Seek lands on the
// smallest key >= the argument, a reverse cursor's on the largest key <= it.
type Cursor interface {
	Seek(key []byte) error
	Next()
	Valid() bool
	Item() (Item, error)
	Close() error
}

type Item struct {
	Key, Value []byte
}

var (
	ErrTxnFull  = errors.New("store: transaction too big")
	ErrMapFull  = errors.New("store: map size limit reached")
	ErrClosed   = errors.New("store: closed")
	ErrReadOnly = errors.New("store: read-only transaction")
)

// Options are shared by all backends. Fields a backend has no use for are
// ignored.
type Options struct {
	InMemory bool
	NoSync   bool
	// MapSize bounds the size of memory mapped backends, in bytes.
	MapSize int64

	GCReclaimInterval time.Duration
	GCDiscardRatio    float64

	Logger logrus.FieldLogger
}

// Log returns the configured logger or the logrus standard logger.
func (o Options) Log() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

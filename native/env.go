// Package native is the storage engine behind the lmkv binding. Its surface
// is C shaped: resources are opaque integer handles, 0 is never
// a valid handle, and every operation reports an integer status code (see
// codes.go) instead of a Go error.
//
// Handles are not safe for concurrent use: a transaction, and the cursors
// opened under it, belong to one goroutine at a time. Distinct transactions
// may be used concurrently.
package native

import (
	"errors"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/ostafen/lmkv/internal"
	"github.com/ostafen/lmkv/store"
	"github.com/sirupsen/logrus"
)

// Txn is a transaction handle.
type Txn uintptr

// Cursor is a cursor handle.
type Cursor uintptr

// DBI identifies a database inside an environment.
type DBI uint32

// MainDBI is the unnamed database every environment has.
const MainDBI DBI = 1

const (
	DefaultMaxDBs     = 16
	DefaultMaxReaders = 126
)

type Options struct {
	// MaxDBs bounds the number of named databases.
	MaxDBs int
	// MaxReaders bounds the number of read-only transactions holding a
	// reader slot, parked ones included.
	MaxReaders int

	Logger logrus.FieldLogger
}

type Env struct {
	store store.Store
	opts  Options
	log   logrus.FieldLogger

	// wmu is held by the single live write transaction.
	wmu sync.Mutex
	// snap orders snapshot acquisition against commit publication, so that a
	// reader's id always matches the data it sees.
	snap sync.RWMutex

	mu         sync.Mutex
	catalog    *internal.Catalog
	txns       map[Txn]*txn
	cursors    map[Cursor]*cursor
	nextHandle uintptr
	readers    int
	closed     bool
}

var ErrClosed = errors.New("native: environment closed")

// Open starts an engine over s. The catalog is created on first use.
func Open(s store.Store, opts Options) (*Env, error) {
	if opts.MaxDBs <= 0 {
		opts.MaxDBs = DefaultMaxDBs
	}
	if opts.MaxReaders <= 0 {
		opts.MaxReaders = DefaultMaxReaders
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	env := &Env{
		store:   s,
		opts:    opts,
		log:     opts.Logger,
		txns:    make(map[Txn]*txn),
		cursors: make(map[Cursor]*cursor),
	}

	catalog, err := env.loadCatalog()
	if err != nil {
		return nil, err
	}
	env.catalog = catalog
	env.log.Debugf("native: opened environment, last txn %d, %d databases", catalog.LastTxnID, len(catalog.DBs))
	return env, nil
}

func (env *Env) loadCatalog() (*internal.Catalog, error) {
	tx, err := env.store.Begin(true)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	data, err := tx.Get(internal.MetaKey())
	if err != nil {
		return nil, err
	}
	if data != nil {
		return internal.DecodeCatalog(data)
	}

	catalog := internal.NewCatalog()
	catalog.DBs = append(catalog.DBs, internal.DBRecord{DBI: uint32(MainDBI)})

	data, err = internal.EncodeCatalog(catalog)
	if err != nil {
		return nil, err
	}
	if err := tx.Set(internal.MetaKey(), data); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	env.log.Debug("native: created catalog")
	return catalog, nil
}

// Close aborts every transaction still open and closes the backend.
func (env *Env) Close() error {
	env.mu.Lock()
	if env.closed {
		env.mu.Unlock()
		return ErrClosed
	}
	env.closed = true
	live := make([]Txn, 0, len(env.txns))
	for h := range env.txns {
		live = append(live, h)
	}
	env.mu.Unlock()

	for _, h := range live {
		env.log.Warnf("native: aborting transaction %#x left open at close", uintptr(h))
		env.TxnAbort(h)
	}

	var result error
	if err := env.store.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	env.mu.Lock()
	if n := len(env.cursors); n > 0 {
		env.log.Debugf("native: releasing %d cursors left open at close", n)
		env.cursors = make(map[Cursor]*cursor)
	}
	env.mu.Unlock()
	return result
}

// Readers returns the number of reader slots in use.
func (env *Env) Readers() int {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.readers
}

func (env *Env) newHandle() uintptr {
	env.nextHandle++
	return env.nextHandle
}

func (env *Env) lookupTxn(h Txn) *txn {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.txns[h]
}

func (env *Env) lookupCursor(h Cursor) *cursor {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.cursors[h]
}

// status translates a backend error into a status code, logging the
// original text since the code cannot carry it.
func (env *Env) status(op string, err error) int {
	if err == nil {
		return Success
	}

	code := EIO
	switch {
	case errors.Is(err, store.ErrTxnFull):
		code = TxnFull
	case errors.Is(err, store.ErrMapFull):
		code = MapFull
	case errors.Is(err, store.ErrClosed):
		code = EINVAL
	case errors.Is(err, store.ErrReadOnly):
		code = EACCES
	case errors.Is(err, internal.ErrMalformedKey):
		code = Corrupted
	}
	env.log.WithField("code", code).Errorf("native: %s: %v", op, err)
	return code
}

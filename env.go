// Package lmkv is an embedded, memory-mapped key/value store with an
// LMDB-shaped API: an Env hands out transactions, transactions open
// databases and cursors, and every failure reported by the engine comes back
// as an *Error carrying its status code.
package lmkv

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/hashicorp/go-multierror"
	"github.com/ostafen/lmkv/native"
	"github.com/ostafen/lmkv/store"
	"github.com/ostafen/lmkv/store/badger"
	"github.com/ostafen/lmkv/store/bbolt"
	"github.com/ostafen/lmkv/store/leveldb"
	"github.com/sirupsen/logrus"
)

var backends = map[string]func(dir string, opts store.Options) (store.Store, error){
	"bbolt":   bbolt.Open,
	"badger":  badger.Open,
	"leveldb": leveldb.Open,
}

// Env is an open environment.
type Env struct {
	id      uuid.UUID
	config  *Config
	eng     engine
	log     logrus.FieldLogger
	metrics metrics
}

// Open opens or creates the environment stored in dir.
func Open(dir string, opts ...Option) (*Env, error) {
	config, err := defaultConfig().applyOptions(opts)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	log := config.Logger.WithField("env", id.String())

	s, err := backends[config.Backend](dir, store.Options{
		InMemory:          config.InMemory,
		NoSync:            config.NoSync,
		MapSize:           config.MapSize,
		GCReclaimInterval: config.GCReclaimInterval,
		GCDiscardRatio:    config.GCDiscardRatio,
		Logger:            log,
	})
	if err != nil {
		return nil, err
	}

	eng, err := native.Open(s, native.Options{
		MaxDBs:     config.MaxDBs,
		MaxReaders: config.MaxReaders,
		Logger:     log,
	})
	if err != nil {
		if cerr := s.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
		return nil, err
	}

	log.WithField("backend", config.Backend).Debug("lmkv: environment opened")
	return newEnv(id, config, eng, log), nil
}

func newEnv(id uuid.UUID, config *Config, eng engine, log logrus.FieldLogger) *Env {
	return &Env{id: id, config: config, eng: eng, log: log, metrics: newMetrics()}
}

// ID identifies this instance of the environment in logs.
func (env *Env) ID() uuid.UUID {
	return env.id
}

// BeginTxn begins a transaction. Only one write transaction exists at a
// time: beginning a second one blocks until the first is released.
func (env *Env) BeginTxn(readOnly bool) (*Txn, error) {
	var flags uint
	kind := "write"
	if readOnly {
		flags, kind = native.TxnRdOnly, "read"
	}

	h, rc := env.eng.TxnBegin(flags)
	if err := operrno("begin", rc); err != nil {
		return nil, err
	}
	env.metrics.TxnBegun.WithLabelValues(kind).Inc()
	return newTxn(env, h, readOnly), nil
}

// Update runs fn in a write transaction, committing it if fn returns nil. The
// transaction is aborted on any other way out of fn, panics included.
func (env *Env) Update(fn func(txn *Txn) error) error {
	txn, err := env.BeginTxn(false)
	if err != nil {
		return err
	}
	defer txn.Abort()

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// View runs fn in a read-only transaction, aborted once fn returns.
func (env *Env) View(fn func(txn *Txn) error) error {
	txn, err := env.BeginTxn(true)
	if err != nil {
		return err
	}
	defer txn.Abort()

	return fn(txn)
}

// UpdateContext is Update, unless ctx is already done. A transaction in
// progress is never interrupted.
func (env *Env) UpdateContext(ctx context.Context, fn func(txn *Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return env.Update(fn)
}

// ViewContext is View, unless ctx is already done.
func (env *Env) ViewContext(ctx context.Context, fn func(txn *Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return env.View(fn)
}

// Close aborts the transactions still open and closes the environment.
func (env *Env) Close() error {
	err := env.eng.Close()
	if errors.Is(err, native.ErrClosed) {
		return ErrClosed
	}

	env.log.Debug("lmkv: environment closed")
	return err
}

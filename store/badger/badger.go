package badger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ostafen/lmkv/store"
	"github.com/sirupsen/logrus"
)

const (
	GCReclaimIntervalDefault = time.Minute * 5
	GCDiscardRatioDefault    = 0.5
)

type badgerStore struct {
	db     *badger.DB
	log    logrus.FieldLogger
	chWg   sync.WaitGroup
	chQuit chan struct{}

	gcInterval     time.Duration
	gcDiscardRatio float64
}

func (s *badgerStore) Begin(update bool) (store.Tx, error) {
	if s.db.IsClosed() {
		return nil, store.ErrClosed
	}
	tx := s.db.NewTransaction(update)
	return &badgerTx{Txn: tx}, nil
}

func (s *badgerStore) Close() error {
	s.stopGC()
	return s.db.Close()
}

func convertError(err error) error {
	switch {
	case errors.Is(err, badger.ErrTxnTooBig):
		return fmt.Errorf("%w: %v", store.ErrTxnFull, err)
	case errors.Is(err, badger.ErrDBClosed), errors.Is(err, badger.ErrDiscardedTxn):
		return fmt.Errorf("%w: %v", store.ErrClosed, err)
	case errors.Is(err, badger.ErrReadOnlyTxn):
		return fmt.Errorf("%w: %v", store.ErrReadOnly, err)
	}
	return err
}

type badgerTx struct {
	*badger.Txn
}

func (tx *badgerTx) Set(key, value []byte) error {
	return convertError(tx.Txn.Set(key, value))
}

func (tx *badgerTx) Delete(key []byte) error {
	return convertError(tx.Txn.Delete(key))
}

func (tx *badgerTx) Get(key []byte) ([]byte, error) {
	item, err := tx.Txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, convertError(err)
	}
	return item.ValueCopy(nil)
}

func (tx *badgerTx) Commit() error {
	return convertError(tx.Txn.Commit())
}

func (tx *badgerTx) Rollback() error {
	tx.Txn.Discard()
	return nil
}

func (tx *badgerTx) Cursor(forward bool) (store.Cursor, error) {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = !forward
	return &badgerCursor{it: tx.NewIterator(opts)}, nil
}

// badgerCursor copies items out of the iterator: badger reuses its buffers
// once the iterator moves.
type badgerCursor struct {
	it *badger.Iterator
}

func (cursor *badgerCursor) Seek(key []byte) error {
	cursor.it.Seek(key)
	return nil
}

func (cursor *badgerCursor) Next() {
	cursor.it.Next()
}

func (cursor *badgerCursor) Valid() bool {
	return cursor.it.Valid()
}

func (cursor *badgerCursor) Item() (store.Item, error) {
	item := cursor.it.Item()

	value, err := item.ValueCopy(nil)
	return store.Item{Key: item.KeyCopy(nil), Value: value}, err
}

func (cursor *badgerCursor) Close() error {
	cursor.it.Close()
	return nil
}

func Open(dir string, opts store.Options) (store.Store, error) {
	if opts.InMemory {
		dir = ""
	}
	log := opts.Log()

	bopts := badger.DefaultOptions(dir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(!opts.NoSync).
		WithLogger(log).
		WithLoggingLevel(badger.WARNING)
	return OpenWithOptions(bopts, opts)
}

func OpenWithOptions(bopts badger.Options, opts store.Options) (store.Store, error) {
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}

	dataStore := &badgerStore{
		db:             db,
		log:            opts.Log(),
		chQuit:         make(chan struct{}, 1),
		gcInterval:     GCReclaimIntervalDefault,
		gcDiscardRatio: GCDiscardRatioDefault,
	}
	if opts.GCReclaimInterval > 0 {
		dataStore.gcInterval = opts.GCReclaimInterval
	}
	if opts.GCDiscardRatio > 0 {
		dataStore.gcDiscardRatio = opts.GCDiscardRatio
	}
	if !bopts.InMemory {
		dataStore.startGC()
	}
	return dataStore, nil
}

func (s *badgerStore) startGC() {
	s.chWg.Add(1)

	go func() {
		defer s.chWg.Done()

		ticker := time.NewTicker(s.gcInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.chQuit:
				return

			case <-ticker.C:
				err := s.db.RunValueLogGC(s.gcDiscardRatio)
				if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
					s.log.Warnf("badger: RunValueLogGC(): %v", err)
				}
			}
		}
	}()
}

func (s *badgerStore) stopGC() {
	s.chQuit <- struct{}{}
	s.chWg.Wait()
	close(s.chQuit)
}

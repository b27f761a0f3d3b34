package leveldb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ostafen/lmkv/store"
	"github.com/syndtr/goleveldb/leveldb"
	dberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	defaultOpenFilesLimit     = 256
	defaultBlockCacheCapacity = 32 * 1024 * 1024
	defaultWriteBufferSize    = 32 * 1024 * 1024
)

type levelStore struct {
	db   *leveldb.DB
	opts *opt.Options
}

func Open(path string, opts store.Options) (store.Store, error) {
	o := newOptions(opts)

	var (
		err error
		db  *leveldb.DB
	)

	if opts.InMemory {
		db, err = leveldb.Open(storage.NewMemStorage(), o)
	} else {
		db, err = leveldb.OpenFile(path, o)
		if dberrors.IsCorrupted(err) {
			opts.Log().Warnf("leveldb: recovering corrupted database at %s: %v", path, err)
			db, err = leveldb.RecoverFile(path, o)
		}
	}
	if err != nil {
		return nil, err
	}
	return &levelStore{db: db, opts: o}, nil
}

// OpenWithStorage opens a database over an already opened leveldb storage.
func OpenWithStorage(stor storage.Storage, opts store.Options) (store.Store, error) {
	o := newOptions(opts)
	db, err := leveldb.Open(stor, o)
	if err != nil {
		return nil, err
	}
	return &levelStore{db: db, opts: o}, nil
}

func newOptions(opts store.Options) *opt.Options {
	return &opt.Options{
		OpenFilesCacheCapacity: defaultOpenFilesLimit,
		BlockCacheCapacity:     defaultBlockCacheCapacity,
		WriteBuffer:            defaultWriteBufferSize,
		NoSync:                 opts.NoSync,
	}
}

func (s *levelStore) Begin(update bool) (store.Tx, error) {
	if update {
		tr, err := s.db.OpenTransaction()
		if err != nil {
			return nil, convertError(err)
		}
		return &levelTx{r: tr, tr: tr, sync: !s.opts.NoSync}, nil
	}

	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, convertError(err)
	}
	return &levelTx{r: snap, snap: snap}, nil
}

func (s *levelStore) Close() error {
	return s.db.Close()
}

func convertError(err error) error {
	if errors.Is(err, leveldb.ErrClosed) || errors.Is(err, leveldb.ErrSnapshotReleased) {
		return fmt.Errorf("%w: %v", store.ErrClosed, err)
	}
	return err
}

// reader is the read surface shared by snapshots and transactions.
type reader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// levelTx is backed by a snapshot for readers and by an exclusive
// leveldb transaction for writers.
type levelTx struct {
	r    reader
	tr   *leveldb.Transaction
	snap *leveldb.Snapshot
	sync bool
	done bool
}

func (tx *levelTx) Get(key []byte) ([]byte, error) {
	value, err := tx.r.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return value, convertError(err)
}

func (tx *levelTx) Set(key, value []byte) error {
	if tx.tr == nil {
		return store.ErrReadOnly
	}
	return convertError(tx.tr.Put(key, value, nil))
}

func (tx *levelTx) Delete(key []byte) error {
	if tx.tr == nil {
		return store.ErrReadOnly
	}
	return convertError(tx.tr.Delete(key, nil))
}

func (tx *levelTx) Commit() error {
	if tx.done {
		return store.ErrClosed
	}
	tx.done = true
	if tx.tr == nil {
		tx.snap.Release()
		return nil
	}
	// a failed leveldb commit keeps the write lock until discarded
	if err := tx.tr.Commit(); err != nil {
		tx.tr.Discard()
		return convertError(err)
	}
	return nil
}

func (tx *levelTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.tr == nil {
		tx.snap.Release()
	} else {
		tx.tr.Discard()
	}
	return nil
}

func (tx *levelTx) Cursor(forward bool) (store.Cursor, error) {
	return &levelCursor{it: tx.r.NewIterator(nil, nil), forward: forward}, nil
}

type levelCursor struct {
	it      iterator.Iterator
	forward bool
}

func (c *levelCursor) Seek(key []byte) error {
	ok := c.it.Seek(key)
	if c.forward {
		return c.it.Error()
	}

	switch {
	case !ok:
		c.it.Last()
	case !bytes.Equal(c.it.Key(), key):
		c.it.Prev()
	}
	return c.it.Error()
}

func (c *levelCursor) Next() {
	if c.forward {
		c.it.Next()
	} else {
		c.it.Prev()
	}
}

func (c *levelCursor) Valid() bool {
	return c.it.Valid()
}

func (c *levelCursor) Item() (store.Item, error) {
	return store.Item{
		Key:   append([]byte(nil), c.it.Key()...),
		Value: append([]byte(nil), c.it.Value()...),
	}, c.it.Error()
}

func (c *levelCursor) Close() error {
	err := c.it.Error()
	c.it.Release()
	return err
}

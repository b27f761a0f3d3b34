package bbolt

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ostafen/lmkv/store"
	"go.etcd.io/bbolt"
)

type boltStore struct {
	db      *bbolt.DB
	mapSize int64
}

const (
	dbFileName = "data.mdb"
	rootBucket = "root"

	// DefaultMapSize is used when no MapSize is given.
	DefaultMapSize = 256 << 20

	leafElementSize = 16
)

var ErrInMemoryUnsupported = errors.New("bbolt: in-memory mode is not supported")

func Open(dir string, opts store.Options) (store.Store, error) {
	if opts.InMemory {
		return nil, ErrInMemoryUnsupported
	}

	mapSize := opts.MapSize
	if mapSize <= 0 {
		mapSize = DefaultMapSize
	}

	db, err := bbolt.Open(filepath.Join(dir, dbFileName), 0666, &bbolt.Options{
		NoSync:          opts.NoSync,
		InitialMmapSize: int(mapSize),
		FreelistType:    bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, err
	}
	store := &boltStore{db: db, mapSize: mapSize}
	err = store.createRootBucketIfNotExists()
	if err != nil {
		db.Close()
		return nil, err
	}

	// a file already larger than the map is mapped whole
	err = db.View(func(tx *bbolt.Tx) error {
		if size := tx.Size(); size > store.mapSize {
			store.mapSize = size
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (store *boltStore) createRootBucketIfNotExists() error {
	tx, err := store.db.Begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.CreateBucketIfNotExists([]byte(rootBucket))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *boltStore) Begin(update bool) (store.Tx, error) {
	tx, err := s.db.Begin(update)
	if err != nil {
		return nil, convertError(err)
	}
	return &boltTx{Tx: tx, mapSize: s.mapSize}, nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}

func convertError(err error) error {
	switch {
	case errors.Is(err, bbolt.ErrDatabaseNotOpen), errors.Is(err, bbolt.ErrTxClosed):
		return fmt.Errorf("%w: %v", store.ErrClosed, err)
	case errors.Is(err, bbolt.ErrTxNotWritable), errors.Is(err, bbolt.ErrDatabaseReadOnly):
		return fmt.Errorf("%w: %v", store.ErrReadOnly, err)
	}
	return err
}

// boltTx never lets the file outgrow the memory map: bbolt remaps by
// waiting for every open read transaction, which would block the writer
// behind readers.
type boltTx struct {
	*bbolt.Tx
	mapSize int64

	writes int64
	bytes  int64
}

func (tx *boltTx) bucket() *bbolt.Bucket {
	return tx.Bucket([]byte(rootBucket))
}

func (tx *boltTx) Set(key, value []byte) error {
	bucket := tx.bucket()
	if err := bucket.Put(key, value); err != nil {
		return convertError(err)
	}
	tx.writes++
	tx.bytes += int64(len(key) + len(value))
	return nil
}

func (tx *boltTx) Get(key []byte) ([]byte, error) {
	bucket := tx.bucket()
	return bucket.Get(key), nil
}

func (tx *boltTx) Delete(key []byte) error {
	bucket := tx.bucket()
	if err := bucket.Delete(key); err != nil {
		return convertError(err)
	}
	tx.writes++
	return nil
}

func (tx *boltTx) Cursor(forward bool) (store.Cursor, error) {
	bucket := tx.bucket()
	cursor := bucket.Cursor()
	return &boltCursor{
		Cursor:  cursor,
		forward: forward,
	}, nil
}

func (tx *boltTx) Commit() error {
	if tx.Writable() && tx.projectedSize() > tx.mapSize {
		_ = tx.Tx.Rollback()
		return fmt.Errorf("%w: %d byte map", store.ErrMapFull, tx.mapSize)
	}
	return convertError(tx.Tx.Commit())
}

// projectedSize overestimates the file size once the transaction commits.
// Pages freed by the transaction cannot be reused while older readers are
// open, so every rewritten page is counted as new.
func (tx *boltTx) projectedSize() int64 {
	pageSize := int64(tx.DB().Info().PageSize)
	size := tx.Size()

	rewritten := tx.writes * pageSize
	if rewritten > size {
		rewritten = size
	}
	// split pages are half full
	added := 2 * (tx.bytes + tx.writes*leafElementSize)
	freelist := 8 * ((size + rewritten + added) / pageSize)

	return size + rewritten + added + freelist + 4*pageSize
}

func (tx *boltTx) Rollback() error {
	err := tx.Tx.Rollback()
	if errors.Is(err, bbolt.ErrTxClosed) {
		return nil
	}
	return err
}

type boltCursor struct {
	*bbolt.Cursor
	forward bool

	currItem store.Item
}

func (c *boltCursor) Seek(seek []byte) error {
	key, value := c.Cursor.Seek(seek)
	if !c.forward {
		key, value = c.adjustSeek(key, value, seek)
	}
	c.currItem = store.Item{Key: key, Value: value}
	return nil
}

// adjustSeek moves a reverse cursor onto the largest key <= seek.
func (c *boltCursor) adjustSeek(key, value, seek []byte) ([]byte, []byte) {
	if key == nil {
		return c.Cursor.Last()
	}
	if !bytes.Equal(key, seek) {
		return c.Cursor.Prev()
	}
	return key, value
}

func (c *boltCursor) Next() {
	var key, value []byte
	if c.forward {
		key, value = c.Cursor.Next()
	} else {
		key, value = c.Cursor.Prev()
	}
	c.currItem = store.Item{Key: key, Value: value}
}

func (c *boltCursor) Valid() bool {
	return c.currItem.Key != nil && c.currItem.Value != nil
}

func (c *boltCursor) Item() (store.Item, error) {
	return c.currItem, nil
}

func (c *boltCursor) Close() error {
	return nil
}

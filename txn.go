package lmkv

import (
	"github.com/ostafen/lmkv/native"
)

// engine is the contract the binding needs from the storage engine.
// *native.Env implements it.
type engine interface {
	TxnBegin(flags uint) (native.Txn, int)
	TxnID(h native.Txn) uint64
	TxnCommit(h native.Txn) int
	TxnAbort(h native.Txn)
	TxnReset(h native.Txn)
	TxnRenew(h native.Txn) int

	DBIOpen(h native.Txn, name string, flags uint) (native.DBI, int)
	Get(h native.Txn, dbi native.DBI, key, data *native.Val) int
	Put(h native.Txn, dbi native.DBI, key, data *native.Val, flags uint) int
	Del(h native.Txn, dbi native.DBI, key, data *native.Val) int
	Drop(h native.Txn, dbi native.DBI, del bool) int

	CursorOpen(h native.Txn, dbi native.DBI) (native.Cursor, int)
	CursorRenew(h native.Txn, c native.Cursor) int
	CursorClose(c native.Cursor)
	CursorGet(c native.Cursor, key, data *native.Val, op int) int
	CursorPut(c native.Cursor, key, data *native.Val, flags uint) int
	CursorDel(c native.Cursor, flags uint) int

	Close() error
}

var _ engine = (*native.Env)(nil)

// Txn is a transaction. It is live from BeginTxn until Commit or Abort
// releases it; a read-only Txn can in between be parked with Reset and made
// live again with Renew.
//
// A Txn must be used by one goroutine at a time. Slices returned by its reads
// point into engine memory and are only valid until the transaction ends or
// is next written to.
type Txn struct {
	env      *Env
	handle   native.Txn // 0 once released
	readOnly bool
	parked   bool

	// epoch changes whenever the transaction leaves the live state, so that
	// cursors can tell they were invalidated.
	epoch uint64

	scratch *[2]native.Val
}

func newTxn(env *Env, h native.Txn, readOnly bool) *Txn {
	return &Txn{env: env, handle: h, readOnly: readOnly}
}

// buffer returns the key/value descriptors passed to the engine, allocating
// them on first use.
func (txn *Txn) buffer() *[2]native.Val {
	if txn.scratch == nil {
		txn.scratch = new([2]native.Val)
	}
	return txn.scratch
}

func (txn *Txn) release() native.Txn {
	h := txn.handle
	txn.handle = 0
	txn.parked = false
	txn.epoch++
	txn.scratch = nil
	return h
}

func (txn *Txn) checkLive(op string) error {
	switch {
	case txn.handle == 0:
		return invalidState("%s on a released transaction", op)
	case txn.parked:
		return invalidState("%s on a reset transaction", op)
	}
	return nil
}

// IsReadOnly reports whether the transaction was begun read-only.
func (txn *Txn) IsReadOnly() bool {
	return txn.readOnly
}

// ID returns the id of the snapshot the transaction works on. Read-only
// transactions begun with no commit in between share an id.
func (txn *Txn) ID() (uint64, error) {
	if err := txn.checkLive("id"); err != nil {
		return 0, err
	}
	return txn.env.eng.TxnID(txn.handle), nil
}

// Commit commits the transaction. The transaction is released whatever the
// outcome, and a failed commit must not be retried. Committing a released
// transaction does nothing.
func (txn *Txn) Commit() error {
	if txn.handle == 0 {
		return nil
	}
	h := txn.release()

	if err := operrno("commit", txn.env.eng.TxnCommit(h)); err != nil {
		txn.env.metrics.TxnCommitFailures.Inc()
		txn.env.log.WithError(err).Warn("lmkv: commit failed")
		return err
	}
	txn.env.metrics.TxnCommitted.Inc()
	return nil
}

// Abort discards the transaction. Aborting a released transaction does
// nothing.
func (txn *Txn) Abort() {
	if txn.handle == 0 {
		return
	}
	txn.env.eng.TxnAbort(txn.release())
	txn.env.metrics.TxnAborted.Inc()
}

// Close aborts the transaction unless it was already released.
func (txn *Txn) Close() error {
	txn.Abort()
	return nil
}

// Reset releases the snapshot of a read-only transaction, keeping the
// transaction for Renew.
func (txn *Txn) Reset() error {
	if err := txn.checkLive("reset"); err != nil {
		return err
	}
	if !txn.readOnly {
		return invalidState("reset on a write transaction")
	}
	txn.env.eng.TxnReset(txn.handle)
	txn.parked = true
	txn.epoch++
	txn.env.metrics.TxnReset.Inc()
	return nil
}

// Renew gives a reset transaction a fresh snapshot. Cursors opened before the
// reset need Cursor.Renew.
func (txn *Txn) Renew() error {
	if txn.handle == 0 {
		return invalidState("renew on a released transaction")
	}
	if err := operrno("renew", txn.env.eng.TxnRenew(txn.handle)); err != nil {
		return err
	}
	txn.parked = false
	txn.env.metrics.TxnRenewed.Inc()
	return nil
}

// OpenDB returns the database called name, "" being the main database.
// flags may contain DupSort, DupFixed and Create.
func (txn *Txn) OpenDB(name string, flags uint) (DBI, error) {
	if err := txn.checkLive("open database"); err != nil {
		return 0, err
	}
	dbi, rc := txn.env.eng.DBIOpen(txn.handle, name, flags)
	if err := operrno("open database", rc); err != nil {
		return 0, err
	}
	return DBI(dbi), nil
}

// Get returns the value of key, its first one for DupSort databases.
func (txn *Txn) Get(dbi DBI, key []byte) ([]byte, error) {
	if err := txn.checkLive("get"); err != nil {
		return nil, err
	}
	buf := txn.buffer()
	buf[0] = native.ValOf(key)
	buf[1].Reset()

	if err := operrno("get", txn.env.eng.Get(txn.handle, native.DBI(dbi), &buf[0], &buf[1])); err != nil {
		return nil, err
	}
	return buf[1].Bytes(), nil
}

// Put stores val under key. Read-only transactions get EACCES.
func (txn *Txn) Put(dbi DBI, key, val []byte, flags uint) error {
	if err := txn.checkLive("put"); err != nil {
		return err
	}
	buf := txn.buffer()
	buf[0], buf[1] = native.ValOf(key), native.ValOf(val)
	return operrno("put", txn.env.eng.Put(txn.handle, native.DBI(dbi), &buf[0], &buf[1], flags))
}

// Del removes key. On DupSort databases a nil val removes every value of key,
// otherwise only the given one.
func (txn *Txn) Del(dbi DBI, key, val []byte) error {
	if err := txn.checkLive("del"); err != nil {
		return err
	}
	buf := txn.buffer()
	buf[0], buf[1] = native.ValOf(key), native.ValOf(val)
	if val == nil {
		buf[1].Reset()
	}
	return operrno("del", txn.env.eng.Del(txn.handle, native.DBI(dbi), &buf[0], &buf[1]))
}

// Drop empties a database and, with del, removes it.
func (txn *Txn) Drop(dbi DBI, del bool) error {
	if err := txn.checkLive("drop"); err != nil {
		return err
	}
	return operrno("drop", txn.env.eng.Drop(txn.handle, native.DBI(dbi), del))
}

// OpenCursor opens a cursor on dbi. The cursor is invalidated when the
// transaction is reset or released.
func (txn *Txn) OpenCursor(dbi DBI) (*Cursor, error) {
	if err := txn.checkLive("open cursor"); err != nil {
		return nil, err
	}
	h, rc := txn.env.eng.CursorOpen(txn.handle, native.DBI(dbi))
	if err := operrno("open cursor", rc); err != nil {
		return nil, err
	}
	return &Cursor{txn: txn, handle: h, epoch: txn.epoch, dbi: dbi}, nil
}

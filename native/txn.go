package native

import (
	"github.com/ostafen/lmkv/internal"
	"github.com/ostafen/lmkv/store"
)

type txn struct {
	handle  Txn
	rdonly  bool
	id      uint64
	tx      store.Tx // nil while reset
	catalog *internal.Catalog
	dirty   bool
	cursors map[Cursor]*cursor
}

func (t *txn) parked() bool {
	return t.tx == nil
}

// TxnBegin starts a transaction. Write transactions are serialised: a second
// writer blocks until the first one ends.
func (env *Env) TxnBegin(flags uint) (Txn, int) {
	if flags&^TxnRdOnly != 0 {
		return 0, EINVAL
	}
	if flags&TxnRdOnly != 0 {
		return env.beginRead()
	}
	return env.beginWrite()
}

func (env *Env) beginRead() (Txn, int) {
	env.mu.Lock()
	if env.closed {
		env.mu.Unlock()
		return 0, EINVAL
	}
	if env.readers >= env.opts.MaxReaders {
		env.mu.Unlock()
		return 0, ReadersFull
	}
	env.readers++
	env.mu.Unlock()

	t := &txn{rdonly: true, cursors: make(map[Cursor]*cursor)}
	if rc := env.acquireSnapshot(t); rc != Success {
		env.releaseReader()
		return 0, rc
	}
	return env.register(t), Success
}

func (env *Env) acquireSnapshot(t *txn) int {
	env.snap.RLock()
	defer env.snap.RUnlock()

	tx, err := env.store.Begin(false)
	if err != nil {
		return env.status("begin read transaction", err)
	}

	env.mu.Lock()
	t.catalog = env.catalog
	env.mu.Unlock()

	t.tx = tx
	t.id = t.catalog.LastTxnID
	return Success
}

func (env *Env) beginWrite() (Txn, int) {
	env.wmu.Lock()

	env.mu.Lock()
	closed := env.closed
	catalog := env.catalog.Clone()
	env.mu.Unlock()

	if closed {
		env.wmu.Unlock()
		return 0, EINVAL
	}

	tx, err := env.store.Begin(true)
	if err != nil {
		env.wmu.Unlock()
		return 0, env.status("begin write transaction", err)
	}

	t := &txn{
		tx:      tx,
		id:      catalog.LastTxnID + 1,
		catalog: catalog,
		cursors: make(map[Cursor]*cursor),
	}
	return env.register(t), Success
}

func (env *Env) register(t *txn) Txn {
	env.mu.Lock()
	defer env.mu.Unlock()

	t.handle = Txn(env.newHandle())
	env.txns[t.handle] = t
	return t.handle
}

// unregister removes h from the handle table and returns it, so that exactly
// one caller gets to finish a transaction.
func (env *Env) unregister(h Txn) *txn {
	env.mu.Lock()
	defer env.mu.Unlock()

	t := env.txns[h]
	if t != nil {
		delete(env.txns, h)
	}
	return t
}

func (env *Env) releaseReader() {
	env.mu.Lock()
	env.readers--
	env.mu.Unlock()
}

// TxnID returns the transaction's id, or 0 for an unknown handle. Readers
// started with no commit in between share an id; a writer's id is one past
// the last committed one.
func (env *Env) TxnID(h Txn) uint64 {
	t := env.lookupTxn(h)
	if t == nil {
		return 0
	}
	return t.id
}

// TxnCommit commits and frees the transaction. The handle is invalid
// afterwards whatever the outcome.
func (env *Env) TxnCommit(h Txn) int {
	t := env.unregister(h)
	if t == nil {
		return EINVAL
	}

	if t.rdonly {
		env.finishRead(t)
		return Success
	}
	defer env.wmu.Unlock()

	env.freeCursors(t)
	if !t.dirty {
		_ = t.tx.Rollback()
		return Success
	}

	t.catalog.LastTxnID = t.id
	data, err := internal.EncodeCatalog(t.catalog)
	if err == nil {
		err = t.tx.Set(internal.MetaKey(), data)
	}
	if err != nil {
		_ = t.tx.Rollback()
		return env.status("commit", err)
	}

	env.snap.Lock()
	defer env.snap.Unlock()

	if err := t.tx.Commit(); err != nil {
		_ = t.tx.Rollback()
		return env.status("commit", err)
	}

	env.mu.Lock()
	env.catalog = t.catalog
	env.mu.Unlock()
	return Success
}

// TxnAbort discards the transaction and frees it. Unknown handles are
// ignored.
func (env *Env) TxnAbort(h Txn) {
	t := env.unregister(h)
	if t == nil {
		return
	}

	if t.rdonly {
		env.finishRead(t)
		return
	}

	env.freeCursors(t)
	if err := t.tx.Rollback(); err != nil {
		env.status("abort", err)
	}
	env.wmu.Unlock()
}

func (env *Env) finishRead(t *txn) {
	if !t.parked() {
		if err := t.tx.Rollback(); err != nil {
			env.status("release snapshot", err)
		}
		t.tx = nil
	}
	env.detachCursors(t)
	env.releaseReader()
}

// TxnReset releases a read-only transaction's snapshot but keeps its handle
// and reader slot for TxnRenew. It does nothing for write transactions or
// transactions already reset. Cursors opened under the transaction must be
// renewed before they are used again.
func (env *Env) TxnReset(h Txn) {
	t := env.lookupTxn(h)
	if t == nil || !t.rdonly || t.parked() {
		return
	}

	if err := t.tx.Rollback(); err != nil {
		env.status("reset", err)
	}
	t.tx = nil
	env.detachCursors(t)
}

// TxnRenew acquires a fresh snapshot for a transaction released by
// TxnReset.
func (env *Env) TxnRenew(h Txn) int {
	t := env.lookupTxn(h)
	if t == nil || !t.rdonly || !t.parked() {
		return EINVAL
	}

	env.mu.Lock()
	closed := env.closed
	env.mu.Unlock()
	if closed {
		return EINVAL
	}
	return env.acquireSnapshot(t)
}

// active resolves a handle to a transaction that can serve reads.
func (env *Env) active(h Txn) (*txn, int) {
	t := env.lookupTxn(h)
	if t == nil {
		return nil, EINVAL
	}
	if t.parked() {
		return nil, BadTxn
	}
	return t, Success
}

// writable resolves a handle to a transaction that can serve writes.
func (env *Env) writable(h Txn) (*txn, int) {
	t, rc := env.active(h)
	if rc != Success {
		return nil, rc
	}
	if t.rdonly {
		return nil, EACCES
	}
	return t, Success
}

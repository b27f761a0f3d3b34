package native

import (
	"bytes"

	"github.com/ostafen/lmkv/internal"
	"github.com/ostafen/lmkv/store"
)

// cursor remembers the backend key of its entry and seeks again on every
// move, so that writes through other cursors of the same transaction never
// leave it dangling.
type cursor struct {
	handle Cursor
	txn    *txn // nil while detached
	dbi    DBI

	pos      []byte // nil when unpositioned
	key, val []byte
	multi    []byte
}

func (c *cursor) unposition() {
	c.pos, c.key, c.val = nil, nil, nil
}

// CursorOpen opens a cursor on dbi. Cursors of a write transaction are freed
// when it ends; those of a read-only transaction survive it and must be
// closed, or renewed with CursorRenew.
func (env *Env) CursorOpen(h Txn, dbi DBI) (Cursor, int) {
	t, rc := env.active(h)
	if rc != Success {
		return 0, rc
	}
	if t.db(dbi) == nil {
		return 0, EINVAL
	}

	c := &cursor{txn: t, dbi: dbi}

	env.mu.Lock()
	defer env.mu.Unlock()

	c.handle = Cursor(env.newHandle())
	env.cursors[c.handle] = c
	t.cursors[c.handle] = c
	return c.handle, Success
}

// CursorRenew binds a cursor from a read-only transaction to another live
// read-only transaction.
func (env *Env) CursorRenew(h Txn, ch Cursor) int {
	t, rc := env.active(h)
	if rc != Success {
		return rc
	}
	c := env.lookupCursor(ch)
	if c == nil || !t.rdonly {
		return EINVAL
	}
	if c.txn != nil && !c.txn.rdonly {
		return EINVAL
	}
	if t.db(c.dbi) == nil {
		return EINVAL
	}

	env.mu.Lock()
	defer env.mu.Unlock()

	if c.txn != nil {
		delete(c.txn.cursors, ch)
	}
	c.txn = t
	t.cursors[ch] = c
	c.unposition()
	return Success
}

// CursorClose frees a cursor. Unknown handles are ignored.
func (env *Env) CursorClose(ch Cursor) {
	env.mu.Lock()
	defer env.mu.Unlock()

	c := env.cursors[ch]
	if c == nil {
		return
	}
	if c.txn != nil {
		delete(c.txn.cursors, ch)
	}
	delete(env.cursors, ch)
}

// CursorTxn returns the transaction a cursor is bound to, 0 if none.
func (env *Env) CursorTxn(ch Cursor) Txn {
	c := env.lookupCursor(ch)
	if c == nil || c.txn == nil {
		return 0
	}
	return c.txn.handle
}

func (env *Env) freeCursors(t *txn) {
	env.mu.Lock()
	defer env.mu.Unlock()

	for h := range t.cursors {
		delete(env.cursors, h)
	}
	t.cursors = nil
}

func (env *Env) detachCursors(t *txn) {
	env.mu.Lock()
	defer env.mu.Unlock()

	for _, c := range t.cursors {
		c.txn = nil
		c.unposition()
	}
	t.cursors = make(map[Cursor]*cursor)
}

func (env *Env) boundCursor(ch Cursor) (*cursor, *internal.DBRecord, int) {
	c := env.lookupCursor(ch)
	if c == nil || c.txn == nil {
		return nil, nil, EINVAL
	}
	if c.txn.parked() {
		return nil, nil, BadTxn
	}
	rec := c.txn.db(c.dbi)
	if rec == nil {
		return nil, nil, EINVAL
	}
	return c, rec, Success
}

// CursorGet positions the cursor according to op and describes the entry it
// lands on in key and data. Ops taking input read it from key and data
// first.
func (env *Env) CursorGet(ch Cursor, key, data *Val, op int) int {
	c, rec, rc := env.boundCursor(ch)
	if rc != Success {
		return rc
	}
	t := c.txn
	dup := isDupSort(rec)
	dbPrefix := internal.DBPrefix(rec.DBI)

	switch op {
	case OpFirstDup, OpLastDup, OpNextDup, OpPrevDup, OpGetBoth, OpGetBothRange:
		if !dup {
			return Incompatible
		}
	case OpGetMultiple, OpNextMultiple:
		if !isDupFixed(rec) {
			return Incompatible
		}
	}

	var item store.Item
	switch op {
	case OpFirst:
		item, rc = env.seek(t, dbPrefix, dbPrefix, true, false)

	case OpLast:
		item, rc = env.seek(t, internal.UpperBound(dbPrefix), dbPrefix, false, false)

	case OpNext:
		if c.pos == nil {
			item, rc = env.seek(t, dbPrefix, dbPrefix, true, false)
		} else {
			item, rc = env.seek(t, c.pos, dbPrefix, true, true)
		}

	case OpPrev:
		if c.pos == nil {
			item, rc = env.seek(t, internal.UpperBound(dbPrefix), dbPrefix, false, false)
		} else {
			item, rc = env.seek(t, c.pos, dbPrefix, false, true)
		}

	case OpNextNoDup:
		if c.pos == nil {
			item, rc = env.seek(t, dbPrefix, dbPrefix, true, false)
		} else {
			item, rc = env.seek(t, internal.UpperBound(c.keyPrefix()), dbPrefix, true, false)
		}

	case OpPrevNoDup:
		if c.pos == nil {
			item, rc = env.seek(t, internal.UpperBound(dbPrefix), dbPrefix, false, false)
		} else {
			item, rc = env.seek(t, c.keyPrefix(), dbPrefix, false, true)
		}

	case OpNextDup:
		if c.pos == nil {
			item, rc = env.seek(t, dbPrefix, dbPrefix, true, false)
		} else {
			item, rc = env.seek(t, c.pos, c.keyPrefix(), true, true)
		}

	case OpPrevDup:
		if c.pos == nil {
			item, rc = env.seek(t, internal.UpperBound(dbPrefix), dbPrefix, false, false)
		} else {
			item, rc = env.seek(t, c.pos, c.keyPrefix(), false, true)
		}

	case OpFirstDup:
		if c.pos == nil {
			return EINVAL
		}
		prefix := c.keyPrefix()
		item, rc = env.seek(t, prefix, prefix, true, false)

	case OpLastDup:
		if c.pos == nil {
			return EINVAL
		}
		prefix := c.keyPrefix()
		item, rc = env.seek(t, internal.UpperBound(prefix), prefix, false, false)

	case OpGetCurrent:
		if c.pos == nil {
			return EINVAL
		}
		v, rc := env.lookup(t, c.pos)
		if rc != Success {
			return rc
		}
		c.val = v
		key.Set(c.key)
		data.Set(c.val)
		return Success

	case OpSet, OpSetKey, OpSetRange:
		k := key.Bytes()
		if len(k) == 0 || len(k) > MaxKeySize {
			return BadValSize
		}
		prefix := internal.KeyPrefix(rec.DBI, k)
		if op == OpSetRange {
			item, rc = env.seek(t, prefix, dbPrefix, true, false)
		} else {
			item, rc = env.seek(t, prefix, prefix, true, false)
		}
		if rc == NotFound {
			c.unposition()
		}

	case OpGetBoth, OpGetBothRange:
		k := key.Bytes()
		if len(k) == 0 || len(k) > MaxKeySize {
			return BadValSize
		}
		prefix := internal.KeyPrefix(rec.DBI, k)
		entry := internal.EntryKey(rec.DBI, k, nonNil(data.Bytes()))
		if op == OpGetBoth {
			item, rc = env.seek(t, entry, entry, true, false)
			if rc == Success && !bytes.Equal(item.Key, entry) {
				rc = NotFound
			}
		} else {
			item, rc = env.seek(t, entry, prefix, true, false)
		}
		if rc == NotFound {
			c.unposition()
		}

	case OpGetMultiple:
		if c.pos == nil {
			return EINVAL
		}
		return env.fetchMultiple(c, rec, c.pos, key, data)

	case OpNextMultiple:
		if c.pos == nil {
			item, rc = env.seek(t, dbPrefix, dbPrefix, true, false)
		} else {
			item, rc = env.seek(t, c.pos, c.keyPrefix(), true, true)
		}
		if rc != Success {
			return rc
		}
		return env.fetchMultiple(c, rec, item.Key, key, data)

	default:
		return EINVAL
	}

	if rc != Success {
		return rc
	}
	if rc := c.moveTo(item, dup); rc != Success {
		return env.status("decode entry", internal.ErrMalformedKey)
	}
	if op != OpSet {
		key.Set(c.key)
	}
	data.Set(c.val)
	return Success
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func (c *cursor) keyPrefix() []byte {
	return internal.KeyPrefix(uint32(c.dbi), c.key)
}

func (c *cursor) moveTo(item store.Item, dup bool) int {
	_, k, _, err := internal.DecodeEntryKey(item.Key, dup)
	if err != nil {
		return Corrupted
	}
	v, ok := internal.DecodeValue(item.Value)
	if !ok {
		return Corrupted
	}
	c.pos = append([]byte(nil), item.Key...)
	c.key = k
	c.val = v
	return Success
}

// fetchMultiple gathers up to a page of fixed-size values of the current key,
// starting at the entry stored under from, and leaves the cursor on the last
// one gathered.
func (env *Env) fetchMultiple(c *cursor, rec *internal.DBRecord, from []byte, key, data *Val) int {
	_, k, _, err := internal.DecodeEntryKey(from, true)
	if err != nil {
		return env.status("decode entry", err)
	}
	prefix := internal.KeyPrefix(rec.DBI, k)

	size := rec.FixedSize
	if size <= 0 {
		size = 1
	}
	limit := MultiplePageSize / size
	if limit < 1 {
		limit = 1
	}

	it, err := c.txn.tx.Cursor(true)
	if err != nil {
		return env.status("cursor", err)
	}
	defer it.Close()

	buf := c.multi[:0]
	var last store.Item
	n := 0
	for err = it.Seek(from); err == nil && it.Valid() && n < limit; it.Next() {
		var item store.Item
		if item, err = it.Item(); err != nil || !bytes.HasPrefix(item.Key, prefix) {
			break
		}
		v, _ := internal.DecodeValue(item.Value)
		buf = append(buf, v...)
		last = item
		n++
	}
	if err != nil {
		return env.status("fetch multiple", err)
	}
	if n == 0 {
		return NotFound
	}

	if rc := c.moveTo(last, true); rc != Success {
		return rc
	}
	c.multi = buf
	key.Set(c.key)
	data.Set(c.multi)
	return Success
}

// CursorPut stores a pair through the cursor and positions it there. With
// PutCurrent the value of the current entry is replaced; key must match the
// current key and, for duplicate-sorted databases, the value must compare
// equal.
func (env *Env) CursorPut(ch Cursor, key, data *Val, flags uint) int {
	c, rec, rc := env.boundCursor(ch)
	if rc != Success {
		return rc
	}
	if c.txn.rdonly {
		return EACCES
	}

	if flags&PutCurrent != 0 {
		if c.pos == nil || !bytes.Equal(key.Bytes(), c.key) {
			return EINVAL
		}
		if isDupSort(rec) && !bytes.Equal(data.Bytes(), c.val) {
			return EINVAL
		}
		flags &^= PutCurrent | PutNoOverwrite | PutNoDupData
	}

	entry, rc := env.put(c.txn, rec, key, data, flags)
	if rc != Success {
		return rc
	}

	raw, err := c.txn.tx.Get(entry)
	if err != nil {
		return env.status("get", err)
	}
	return c.moveTo(store.Item{Key: entry, Value: raw}, isDupSort(rec))
}

// CursorDel removes the current entry, or with PutNoDupData every value of
// the current key. The cursor keeps its place: OpNext moves to the entry
// that followed.
func (env *Env) CursorDel(ch Cursor, flags uint) int {
	c, rec, rc := env.boundCursor(ch)
	if rc != Success {
		return rc
	}
	if c.txn.rdonly {
		return EACCES
	}
	if c.pos == nil {
		return EINVAL
	}

	if flags&PutNoDupData != 0 && isDupSort(rec) {
		n, rc := env.deletePrefix(c.txn, c.keyPrefix())
		if rc == Success && n == 0 {
			return NotFound
		}
		return rc
	}
	return env.deleteEntry(c.txn, c.pos)
}

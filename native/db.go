package native

import (
	"bytes"

	"github.com/ostafen/lmkv/internal"
	"github.com/ostafen/lmkv/store"
)

func (t *txn) db(dbi DBI) *internal.DBRecord {
	return t.catalog.LookupDBI(uint32(dbi))
}

func isDupSort(rec *internal.DBRecord) bool  { return rec.Flags&DBDupSort != 0 }
func isDupFixed(rec *internal.DBRecord) bool { return rec.Flags&DBDupFixed != 0 }

// DBIOpen opens the database called name, "" being the main database. With
// DBCreate a missing database is created; this needs a write transaction and
// becomes visible to other transactions once it commits.
func (env *Env) DBIOpen(h Txn, name string, flags uint) (DBI, int) {
	t, rc := env.active(h)
	if rc != Success {
		return 0, rc
	}
	if flags&^(dbPersistentFlags|DBCreate) != 0 || flags&(DBReverseKey|DBIntegerKey) != 0 {
		return 0, EINVAL
	}
	if flags&DBDupFixed != 0 && flags&DBDupSort == 0 {
		return 0, EINVAL
	}
	want := flags & dbPersistentFlags

	if rec := t.catalog.Lookup(name); rec != nil {
		if flags&DBCreate != 0 && rec.Flags != want {
			return 0, Incompatible
		}
		return DBI(rec.DBI), Success
	}

	if flags&DBCreate == 0 {
		return 0, NotFound
	}
	if t.rdonly {
		return 0, EACCES
	}
	if name == "" {
		return 0, Incompatible
	}
	if len(t.catalog.DBs)-1 >= env.opts.MaxDBs {
		return 0, DBsFull
	}

	rec := internal.DBRecord{DBI: t.catalog.NextDBI, Name: name, Flags: want}
	t.catalog.NextDBI++
	t.catalog.DBs = append(t.catalog.DBs, rec)
	t.dirty = true
	env.log.Debugf("native: created database %q as dbi %d", name, rec.DBI)
	return DBI(rec.DBI), Success
}

// DBIFlags reports the flags a database was created with.
func (env *Env) DBIFlags(h Txn, dbi DBI) (uint, int) {
	t, rc := env.active(h)
	if rc != Success {
		return 0, rc
	}
	rec := t.db(dbi)
	if rec == nil {
		return 0, EINVAL
	}
	return rec.Flags, Success
}

// Get looks key up and describes its value (its first value, for
// duplicate-sorted databases) in data.
func (env *Env) Get(h Txn, dbi DBI, key, data *Val) int {
	t, rc := env.active(h)
	if rc != Success {
		return rc
	}
	rec := t.db(dbi)
	if rec == nil {
		return EINVAL
	}
	k := key.Bytes()
	if len(k) == 0 || len(k) > MaxKeySize {
		return BadValSize
	}

	if isDupSort(rec) {
		prefix := internal.KeyPrefix(rec.DBI, k)
		item, rc := env.seek(t, prefix, prefix, true, false)
		if rc != Success {
			return rc
		}
		v, _ := internal.DecodeValue(item.Value)
		data.Set(v)
		return Success
	}

	v, rc := env.lookup(t, internal.EntryKey(rec.DBI, k, nil))
	if rc != Success {
		return rc
	}
	data.Set(v)
	return Success
}

// Put stores a key/data pair. For PutNoOverwrite collisions data is set to
// the existing value and KeyExist is returned.
func (env *Env) Put(h Txn, dbi DBI, key, data *Val, flags uint) int {
	t, rc := env.writable(h)
	if rc != Success {
		return rc
	}
	rec := t.db(dbi)
	if rec == nil {
		return EINVAL
	}
	if flags&PutCurrent != 0 {
		return EINVAL
	}
	_, rc = env.put(t, rec, key, data, flags)
	return rc
}

// put writes a pair and returns the backend key it was stored under.
func (env *Env) put(t *txn, rec *internal.DBRecord, key, data *Val, flags uint) ([]byte, int) {
	if flags&^(PutNoOverwrite|PutNoDupData|PutAppend|PutAppendDup|PutCurrent) != 0 {
		return nil, EINVAL
	}
	k, v := key.Bytes(), data.Bytes()
	if len(k) == 0 || len(k) > MaxKeySize {
		return nil, BadValSize
	}
	if v == nil {
		v = []byte{}
	}

	var entry []byte
	if isDupSort(rec) {
		if len(v) > MaxKeySize {
			return nil, BadValSize
		}
		if isDupFixed(rec) && rec.FixedSize != 0 && rec.FixedSize != len(v) {
			return nil, BadValSize
		}

		prefix := internal.KeyPrefix(rec.DBI, k)
		if flags&PutNoOverwrite != 0 {
			item, rc := env.seek(t, prefix, prefix, true, false)
			if rc == Success {
				existing, _ := internal.DecodeValue(item.Value)
				data.Set(existing)
				return nil, KeyExist
			} else if rc != NotFound {
				return nil, rc
			}
		}

		entry = internal.EntryKey(rec.DBI, k, v)
		_, rc := env.lookup(t, entry)
		switch {
		case rc == Success && flags&PutNoDupData != 0:
			return nil, KeyExist
		case rc == Success:
			return entry, Success
		case rc != NotFound:
			return nil, rc
		}

		if flags&PutAppendDup != 0 {
			if rc := env.checkAppend(t, entry, prefix); rc != Success {
				return nil, rc
			}
		}
	} else {
		entry = internal.EntryKey(rec.DBI, k, nil)
		if flags&PutNoOverwrite != 0 {
			existing, rc := env.lookup(t, entry)
			if rc == Success {
				data.Set(existing)
				return nil, KeyExist
			} else if rc != NotFound {
				return nil, rc
			}
		}
	}

	if flags&PutAppend != 0 {
		if rc := env.checkAppend(t, entry, internal.DBPrefix(rec.DBI)); rc != Success {
			return nil, rc
		}
	}

	if err := t.tx.Set(entry, internal.EncodeValue(v)); err != nil {
		return nil, env.status("put", err)
	}
	if isDupFixed(rec) && rec.FixedSize == 0 {
		rec.FixedSize = len(v)
	}
	t.dirty = true
	return entry, Success
}

// checkAppend fails with KeyExist unless entry sorts after every key under
// prefix.
func (env *Env) checkAppend(t *txn, entry, prefix []byte) int {
	last, rc := env.seek(t, internal.UpperBound(prefix), prefix, false, false)
	switch {
	case rc == NotFound:
		return Success
	case rc != Success:
		return rc
	case bytes.Compare(entry, last.Key) <= 0:
		return KeyExist
	}
	return Success
}

// Del removes key. For duplicate-sorted databases a nil data removes every
// value of key, otherwise only the matching pair.
func (env *Env) Del(h Txn, dbi DBI, key, data *Val) int {
	t, rc := env.writable(h)
	if rc != Success {
		return rc
	}
	rec := t.db(dbi)
	if rec == nil {
		return EINVAL
	}
	k := key.Bytes()
	if len(k) == 0 || len(k) > MaxKeySize {
		return BadValSize
	}

	if isDupSort(rec) && data.IsNil() {
		n, rc := env.deletePrefix(t, internal.KeyPrefix(rec.DBI, k))
		if rc == Success && n == 0 {
			return NotFound
		}
		return rc
	}

	var entry []byte
	if isDupSort(rec) {
		entry = internal.EntryKey(rec.DBI, k, data.Bytes())
	} else {
		entry = internal.EntryKey(rec.DBI, k, nil)
	}
	return env.deleteEntry(t, entry)
}

func (env *Env) deleteEntry(t *txn, entry []byte) int {
	if _, rc := env.lookup(t, entry); rc != Success {
		return rc
	}
	if err := t.tx.Delete(entry); err != nil {
		return env.status("delete", err)
	}
	t.dirty = true
	return Success
}

// Drop empties a database and, with del, removes it from the environment.
// The main database can only be emptied.
func (env *Env) Drop(h Txn, dbi DBI, del bool) int {
	t, rc := env.writable(h)
	if rc != Success {
		return rc
	}
	rec := t.db(dbi)
	if rec == nil {
		return EINVAL
	}

	if _, rc := env.deletePrefix(t, internal.DBPrefix(rec.DBI)); rc != Success {
		return rc
	}
	if del && dbi != MainDBI {
		t.catalog.Remove(rec.DBI)
		env.log.Debugf("native: deleted dbi %d", dbi)
	} else {
		rec.FixedSize = 0
	}
	t.dirty = true
	return Success
}

// deletePrefix removes every backend key starting with prefix. Keys are
// collected first since some backends allow a single iterator per writer.
func (env *Env) deletePrefix(t *txn, prefix []byte) (int, int) {
	c, err := t.tx.Cursor(true)
	if err != nil {
		return 0, env.status("cursor", err)
	}

	var keys [][]byte
	for err = c.Seek(prefix); err == nil && c.Valid(); c.Next() {
		var item store.Item
		item, err = c.Item()
		if err != nil || !bytes.HasPrefix(item.Key, prefix) {
			break
		}
		keys = append(keys, append([]byte(nil), item.Key...))
	}
	if cerr := c.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, env.status("scan", err)
	}

	for _, k := range keys {
		if err := t.tx.Delete(k); err != nil {
			return 0, env.status("delete", err)
		}
	}
	if len(keys) > 0 {
		t.dirty = true
	}
	return len(keys), Success
}

// lookup returns the decoded value stored under a backend key.
func (env *Env) lookup(t *txn, entry []byte) ([]byte, int) {
	raw, err := t.tx.Get(entry)
	if err != nil {
		return nil, env.status("get", err)
	}
	v, ok := internal.DecodeValue(raw)
	if !ok {
		return nil, NotFound
	}
	return v, Success
}

// seek returns the first item >= from (forward) or the last item <= from
// (reverse), skipping an exact match when exclusive, provided it starts with
// prefix.
func (env *Env) seek(t *txn, from, prefix []byte, forward, exclusive bool) (store.Item, int) {
	c, err := t.tx.Cursor(forward)
	if err != nil {
		return store.Item{}, env.status("cursor", err)
	}
	defer c.Close()

	if err := c.Seek(from); err != nil {
		return store.Item{}, env.status("seek", err)
	}
	if !c.Valid() {
		return store.Item{}, NotFound
	}

	item, err := c.Item()
	if err != nil {
		return store.Item{}, env.status("seek", err)
	}
	if exclusive && bytes.Equal(item.Key, from) {
		c.Next()
		if !c.Valid() {
			return store.Item{}, NotFound
		}
		if item, err = c.Item(); err != nil {
			return store.Item{}, env.status("seek", err)
		}
	}

	if !bytes.HasPrefix(item.Key, prefix) {
		return store.Item{}, NotFound
	}
	return item, Success
}

package lmkv

import (
	"github.com/ostafen/lmkv/native"
)

// Cursor iterates over a database inside a transaction. It shares the
// transaction's buffers, so returned slices follow the same validity rules
// as Txn.Get.
type Cursor struct {
	txn    *Txn
	handle native.Cursor
	epoch  uint64
	dbi    DBI
}

// Txn returns the transaction the cursor was last bound to.
func (c *Cursor) Txn() *Txn {
	return c.txn
}

// DBI returns the database the cursor walks.
func (c *Cursor) DBI() DBI {
	return c.dbi
}

func (c *Cursor) check() error {
	if c.handle == 0 || c.txn.handle == 0 || c.txn.parked || c.txn.epoch != c.epoch {
		return ErrBadCursor
	}
	return nil
}

// Get positions the cursor according to op and returns the pair it lands on.
// setKey and setVal are only read by the operations taking input, GetBoth
// and GetBothRange.
func (c *Cursor) Get(setKey, setVal []byte, op GetOp) (key, val []byte, err error) {
	if err := c.check(); err != nil {
		return nil, nil, err
	}
	if !op.Valid() {
		return nil, nil, &Error{Op: "cursor get", Errno: EINVAL}
	}
	return c.get(setKey, setVal, op.Value(), "cursor get "+op.String())
}

// Seek looks key up according to op.
func (c *Cursor) Seek(key []byte, op SeekOp) ([]byte, []byte, error) {
	if err := c.check(); err != nil {
		return nil, nil, err
	}
	if !op.Valid() {
		return nil, nil, &Error{Op: "cursor seek", Errno: EINVAL}
	}
	return c.get(key, nil, op.Value(), "cursor seek "+op.String())
}

func (c *Cursor) get(setKey, setVal []byte, op int, name string) ([]byte, []byte, error) {
	buf := c.txn.buffer()
	buf[0], buf[1] = native.ValOf(setKey), native.ValOf(setVal)

	if err := operrno(name, c.txn.env.eng.CursorGet(c.handle, &buf[0], &buf[1], op)); err != nil {
		return nil, nil, err
	}
	return buf[0].Bytes(), buf[1].Bytes(), nil
}

// Put stores a pair and moves the cursor onto it. With Current the value of
// the current pair is replaced.
func (c *Cursor) Put(key, val []byte, flags uint) error {
	if err := c.check(); err != nil {
		return err
	}
	buf := c.txn.buffer()
	buf[0], buf[1] = native.ValOf(key), native.ValOf(val)
	return operrno("cursor put", c.txn.env.eng.CursorPut(c.handle, &buf[0], &buf[1], flags))
}

// Del removes the current pair, or with NoDupData every value of the current
// key.
func (c *Cursor) Del(flags uint) error {
	if err := c.check(); err != nil {
		return err
	}
	return operrno("cursor del", c.txn.env.eng.CursorDel(c.handle, flags))
}

// Renew binds a cursor of a read-only transaction to txn, which must be live
// and read-only. The cursor is left unpositioned.
func (c *Cursor) Renew(txn *Txn) error {
	if c.handle == 0 || !c.txn.readOnly {
		return ErrBadCursor
	}
	if err := txn.checkLive("renew cursor"); err != nil {
		return err
	}
	if !txn.readOnly {
		return invalidState("renew cursor on a write transaction")
	}
	if err := operrno("renew cursor", txn.env.eng.CursorRenew(txn.handle, c.handle)); err != nil {
		return err
	}
	c.txn, c.epoch = txn, txn.epoch
	return nil
}

// Close frees the cursor. Closing twice does nothing.
func (c *Cursor) Close() {
	if c.handle == 0 {
		return
	}
	c.txn.env.eng.CursorClose(c.handle)
	c.handle = 0
}

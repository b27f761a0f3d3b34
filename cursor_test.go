package lmkv

import (
	"encoding/binary"
	"sort"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

func TestCursorWalk(t *testing.T) {
	runEnvTest(t, func(t *testing.T, env *Env) {
		keys := make([]string, 0, 50)
		for i := 0; i < 50; i++ {
			keys = append(keys, gofakeit.UUID())
		}

		err := env.Update(func(txn *Txn) error {
			for _, k := range keys {
				if err := txn.Put(MainDBI, []byte(k), []byte("v-"+k), 0); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)
		sort.Strings(keys)

		err = env.View(func(txn *Txn) error {
			c, err := txn.OpenCursor(MainDBI)
			require.NoError(t, err)
			defer c.Close()

			var walked []string
			for {
				k, v, err := c.Get(nil, nil, Next)
				if IsNotFound(err) {
					break
				}
				require.NoError(t, err)
				require.Equal(t, "v-"+string(k), string(v))
				walked = append(walked, string(k))
			}
			require.Equal(t, keys, walked)

			var reversed []string
			for k, _, err := c.Get(nil, nil, Last); err == nil; k, _, err = c.Get(nil, nil, Prev) {
				reversed = append(reversed, string(k))
			}
			require.Len(t, reversed, len(keys))
			require.Equal(t, keys[len(keys)-1], reversed[0])
			require.Equal(t, keys[0], reversed[len(reversed)-1])

			k, _, err := c.Seek([]byte(keys[10]), SeekKey)
			require.NoError(t, err)
			require.Equal(t, keys[10], string(k))

			k, _, err = c.Seek([]byte(keys[10]+"\x00"), SeekRange)
			require.NoError(t, err)
			require.Equal(t, keys[11], string(k))

			_, _, err = c.Seek([]byte("zzz"), SeekKey)
			require.True(t, IsNotFound(err))
			return nil
		})
		require.NoError(t, err)
	})
}

func TestCursorInvalidOps(t *testing.T) {
	runEnvTest(t, func(t *testing.T, env *Env) {
		putString(t, env, "a", "1")

		err := env.View(func(txn *Txn) error {
			c, err := txn.OpenCursor(MainDBI)
			require.NoError(t, err)
			defer c.Close()

			_, _, err = c.Get(nil, nil, GetOp(99))
			require.True(t, IsErrno(err, EINVAL))
			_, _, err = c.Seek([]byte("a"), SeekOp(Next))
			require.True(t, IsErrno(err, EINVAL))

			_, _, err = c.Get(nil, nil, GetCurrent)
			require.True(t, IsErrno(err, EINVAL))

			for _, op := range []GetOp{FirstDup, LastDup, NextDup, PrevDup, GetBoth, GetBothRange, GetMultiple, NextMultiple} {
				_, _, err = c.Get([]byte("a"), []byte("1"), op)
				require.True(t, IsErrno(err, Incompatible), op.String())
			}

			require.True(t, IsErrno(c.Put([]byte("b"), []byte("2"), 0), EACCES))
			return nil
		})
		require.NoError(t, err)
	})
}

func TestCursorDupSort(t *testing.T) {
	runEnvTest(t, func(t *testing.T, env *Env) {
		err := env.Update(func(txn *Txn) error {
			dbi, err := txn.OpenDB("tags", Create|DupSort)
			require.NoError(t, err)

			for _, v := range []string{"red", "blue", "green"} {
				require.NoError(t, txn.Put(dbi, []byte("apple"), []byte(v), 0))
			}
			require.NoError(t, txn.Put(dbi, []byte("kiwi"), []byte("green"), 0))
			require.True(t, IsKeyExist(txn.Put(dbi, []byte("kiwi"), []byte("green"), NoDupData)))

			c, err := txn.OpenCursor(dbi)
			require.NoError(t, err)
			defer c.Close()

			var values []string
			k, v, err := c.Get([]byte("apple"), nil, First)
			for ; err == nil; k, v, err = c.Get(nil, nil, NextDup) {
				require.Equal(t, "apple", string(k))
				values = append(values, string(v))
			}
			require.True(t, IsNotFound(err))
			require.Equal(t, []string{"blue", "green", "red"}, values)

			k, v, err = c.Get(nil, nil, NextNoDup)
			require.NoError(t, err)
			require.Equal(t, "kiwi", string(k))
			require.Equal(t, "green", string(v))

			k, v, err = c.Get([]byte("apple"), []byte("c"), GetBothRange)
			require.NoError(t, err)
			require.Equal(t, "apple", string(k))
			require.Equal(t, "green", string(v))

			_, _, err = c.Get([]byte("apple"), []byte("pink"), GetBoth)
			require.True(t, IsNotFound(err))

			_, _, err = c.Get([]byte("apple"), []byte("red"), GetBoth)
			require.NoError(t, err)
			require.NoError(t, c.Del(0))

			v, err = txn.Get(dbi, []byte("apple"))
			require.NoError(t, err)
			require.Equal(t, "blue", string(v))

			require.NoError(t, txn.Del(dbi, []byte("apple"), nil))
			_, err = txn.Get(dbi, []byte("apple"))
			require.True(t, IsNotFound(err))
			return nil
		})
		require.NoError(t, err)
	})
}

func TestCursorGetMultiple(t *testing.T) {
	runEnvTest(t, func(t *testing.T, env *Env) {
		const n = 100

		err := env.Update(func(txn *Txn) error {
			dbi, err := txn.OpenDB("series", Create|DupSort|DupFixed)
			require.NoError(t, err)

			for i := 0; i < n; i++ {
				v := make([]byte, 8)
				binary.BigEndian.PutUint64(v, uint64(i))
				require.NoError(t, txn.Put(dbi, []byte("s"), v, 0))
			}
			require.True(t, IsErrno(txn.Put(dbi, []byte("s"), []byte("short"), 0), BadValSize))

			c, err := txn.OpenCursor(dbi)
			require.NoError(t, err)

			_, _, err = c.Get(nil, nil, First)
			require.NoError(t, err)

			k, page, err := c.Get(nil, nil, GetMultiple)
			require.NoError(t, err)
			require.Equal(t, "s", string(k))
			require.Len(t, page, n*8)
			for i := 0; i < n; i++ {
				require.Equal(t, uint64(i), binary.BigEndian.Uint64(page[i*8:]))
			}

			_, _, err = c.Get(nil, nil, NextMultiple)
			require.True(t, IsNotFound(err))
			return nil
		})
		require.NoError(t, err)
	})
}

func TestCursorPut(t *testing.T) {
	runEnvTest(t, func(t *testing.T, env *Env) {
		err := env.Update(func(txn *Txn) error {
			c, err := txn.OpenCursor(MainDBI)
			require.NoError(t, err)

			require.NoError(t, c.Put([]byte("a"), []byte("1"), 0))
			require.NoError(t, c.Put([]byte("a"), []byte("2"), Current))
			require.True(t, IsErrno(c.Put([]byte("b"), []byte("2"), Current), EINVAL))

			k, v, err := c.Get(nil, nil, GetCurrent)
			require.NoError(t, err)
			require.Equal(t, "a", string(k))
			require.Equal(t, "2", string(v))

			require.True(t, IsKeyExist(c.Put([]byte("0"), []byte("x"), Append)))
			require.NoError(t, c.Put([]byte("b"), []byte("x"), Append))

			require.NoError(t, c.Del(0))
			_, _, err = c.Get(nil, nil, GetCurrent)
			require.True(t, IsNotFound(err))
			return nil
		})
		require.NoError(t, err)
	})
}

func TestCursorInvalidatedByReset(t *testing.T) {
	runEnvTest(t, func(t *testing.T, env *Env) {
		putString(t, env, "a", "1")

		txn, err := env.BeginTxn(true)
		require.NoError(t, err)
		defer txn.Abort()

		c, err := txn.OpenCursor(MainDBI)
		require.NoError(t, err)
		defer c.Close()
		require.Same(t, txn, c.Txn())
		require.Equal(t, MainDBI, c.DBI())

		require.NoError(t, txn.Reset())
		_, _, err = c.Get(nil, nil, First)
		require.ErrorIs(t, err, ErrBadCursor)
		require.ErrorIs(t, err, ErrInvalidState)
		require.ErrorIs(t, c.Renew(txn), ErrInvalidState)

		require.NoError(t, txn.Renew())
		_, _, err = c.Get(nil, nil, First)
		require.ErrorIs(t, err, ErrBadCursor)

		require.NoError(t, c.Renew(txn))
		k, _, err := c.Get(nil, nil, First)
		require.NoError(t, err)
		require.Equal(t, "a", string(k))

		txn.Abort()
		_, _, err = c.Get(nil, nil, First)
		require.ErrorIs(t, err, ErrBadCursor)

		other, err := env.BeginTxn(true)
		require.NoError(t, err)
		defer other.Abort()
		require.NoError(t, c.Renew(other))
		k, _, err = c.Get(nil, nil, Last)
		require.NoError(t, err)
		require.Equal(t, "a", string(k))
		require.Same(t, other, c.Txn())

		c.Close()
		c.Close()
		_, _, err = c.Get(nil, nil, First)
		require.ErrorIs(t, err, ErrBadCursor)
	})
}

func TestWriteCursorDiesWithTxn(t *testing.T) {
	runEnvTest(t, func(t *testing.T, env *Env) {
		txn, err := env.BeginTxn(false)
		require.NoError(t, err)

		c, err := txn.OpenCursor(MainDBI)
		require.NoError(t, err)
		require.NoError(t, c.Put([]byte("a"), []byte("1"), 0))
		require.NoError(t, txn.Commit())

		_, _, err = c.Get(nil, nil, First)
		require.ErrorIs(t, err, ErrBadCursor)

		r, err := env.BeginTxn(true)
		require.NoError(t, err)
		defer r.Abort()
		require.ErrorIs(t, c.Renew(r), ErrBadCursor)
		c.Close()

		rc, err := r.OpenCursor(MainDBI)
		require.NoError(t, err)
		defer rc.Close()

		w, err := env.BeginTxn(false)
		require.NoError(t, err)
		defer w.Abort()
		require.ErrorIs(t, rc.Renew(w), ErrInvalidState)
	})
}

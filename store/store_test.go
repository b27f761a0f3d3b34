package store_test

import (
	"io"
	"testing"

	"github.com/ostafen/lmkv/store"
	"github.com/ostafen/lmkv/store/badger"
	"github.com/ostafen/lmkv/store/bbolt"
	"github.com/ostafen/lmkv/store/leveldb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testOptions() store.Options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return store.Options{NoSync: true, MapSize: 1 << 20, Logger: l}
}

func runStoreTest(t *testing.T, test func(t *testing.T, s store.Store)) {
	openers := map[string]func(string, store.Options) (store.Store, error){
		"bbolt":   bbolt.Open,
		"badger":  badger.Open,
		"leveldb": leveldb.Open,
	}
	for name, open := range openers {
		open := open
		t.Run(name, func(t *testing.T) {
			s, err := open(t.TempDir(), testOptions())
			require.NoError(t, err)
			defer s.Close()

			test(t, s)
		})
	}
}

func fill(t *testing.T, s store.Store, keys ...string) {
	tx, err := s.Begin(true)
	require.NoError(t, err)
	for _, k := range keys {
		require.NoError(t, tx.Set([]byte(k), []byte("v"+k)))
	}
	require.NoError(t, tx.Commit())
}

func seek(t *testing.T, tx store.Tx, forward bool, key string) string {
	c, err := tx.Cursor(forward)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Seek([]byte(key)))
	if !c.Valid() {
		return ""
	}
	item, err := c.Item()
	require.NoError(t, err)
	return string(item.Key)
}

func TestCommitAndRollback(t *testing.T) {
	runStoreTest(t, func(t *testing.T, s store.Store) {
		fill(t, s, "a")

		tx, err := s.Begin(true)
		require.NoError(t, err)
		require.NoError(t, tx.Set([]byte("b"), []byte("vb")))

		v, err := tx.Get([]byte("b"))
		require.NoError(t, err)
		require.Equal(t, []byte("vb"), v)
		require.NoError(t, tx.Rollback())

		tx, err = s.Begin(false)
		require.NoError(t, err)
		defer tx.Rollback()

		v, err = tx.Get([]byte("a"))
		require.NoError(t, err)
		require.Equal(t, []byte("va"), v)

		v, err = tx.Get([]byte("b"))
		require.NoError(t, err)
		require.Nil(t, v)
	})
}

func TestReadTxnIsSnapshot(t *testing.T) {
	runStoreTest(t, func(t *testing.T, s store.Store) {
		r, err := s.Begin(false)
		require.NoError(t, err)
		defer r.Rollback()

		fill(t, s, "a")

		v, err := r.Get([]byte("a"))
		require.NoError(t, err)
		require.Nil(t, v)
		require.ErrorIs(t, r.Set([]byte("x"), []byte("y")), store.ErrReadOnly)
	})
}

func TestCursorSeek(t *testing.T) {
	runStoreTest(t, func(t *testing.T, s store.Store) {
		fill(t, s, "b", "d", "f")

		tx, err := s.Begin(false)
		require.NoError(t, err)
		defer tx.Rollback()

		require.Equal(t, "b", seek(t, tx, true, "a"))
		require.Equal(t, "d", seek(t, tx, true, "d"))
		require.Equal(t, "f", seek(t, tx, true, "e"))
		require.Equal(t, "", seek(t, tx, true, "g"))

		require.Equal(t, "", seek(t, tx, false, "a"))
		require.Equal(t, "d", seek(t, tx, false, "d"))
		require.Equal(t, "d", seek(t, tx, false, "e"))
		require.Equal(t, "f", seek(t, tx, false, "z"))

		c, err := tx.Cursor(false)
		require.NoError(t, err)
		defer c.Close()

		var keys []string
		for c.Seek([]byte("z")); c.Valid(); c.Next() {
			item, err := c.Item()
			require.NoError(t, err)
			keys = append(keys, string(item.Key))
		}
		require.Equal(t, []string{"f", "d", "b"}, keys)
	})
}

func TestDelete(t *testing.T) {
	runStoreTest(t, func(t *testing.T, s store.Store) {
		fill(t, s, "a", "b")

		tx, err := s.Begin(true)
		require.NoError(t, err)
		require.NoError(t, tx.Delete([]byte("a")))
		require.NoError(t, tx.Commit())

		tx, err = s.Begin(false)
		require.NoError(t, err)
		defer tx.Rollback()
		require.Equal(t, "b", seek(t, tx, true, ""))
	})
}

func TestBboltInMemoryUnsupported(t *testing.T) {
	opts := testOptions()
	opts.InMemory = true
	_, err := bbolt.Open(t.TempDir(), opts)
	require.ErrorIs(t, err, bbolt.ErrInMemoryUnsupported)
}

func TestInMemory(t *testing.T) {
	opts := testOptions()
	opts.InMemory = true

	for name, open := range map[string]func(string, store.Options) (store.Store, error){
		"badger":  badger.Open,
		"leveldb": leveldb.Open,
	} {
		open := open
		t.Run(name, func(t *testing.T) {
			s, err := open("", opts)
			require.NoError(t, err)
			defer s.Close()

			fill(t, s, "a")
			tx, err := s.Begin(false)
			require.NoError(t, err)
			defer tx.Rollback()
			require.Equal(t, "a", seek(t, tx, true, ""))
		})
	}
}

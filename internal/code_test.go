package internal

import (
	"bytes"
	"sort"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

func getSign(v int) int {
	if v > 0 {
		return 1
	} else if v < 0 {
		return -1
	}
	return 0
}

func TestEntryKeyOrder(t *testing.T) {
	n := 10000
	for i := 0; i < n; i++ {
		a := []byte(gofakeit.LetterN(uint(gofakeit.IntRange(0, 12))))
		b := []byte(gofakeit.LetterN(uint(gofakeit.IntRange(0, 12))))

		require.Equal(t, getSign(bytes.Compare(a, b)),
			getSign(bytes.Compare(EntryKey(2, a, nil), EntryKey(2, b, nil))))
	}
}

func TestDupEntriesSortByKeyThenValue(t *testing.T) {
	pairs := [][2]string{
		{"b", "1"}, {"a", "zz"}, {"a", "\x00"}, {"ab", ""}, {"a", ""}, {"b", "\xff"},
	}

	encoded := make([][]byte, 0, len(pairs))
	for _, p := range pairs {
		encoded = append(encoded, EntryKey(3, []byte(p[0]), []byte(p[1])))
	}
	sort.Slice(encoded, func(i, j int) bool { return bytes.Compare(encoded[i], encoded[j]) < 0 })

	var got []string
	for _, raw := range encoded {
		dbi, k, v, err := DecodeEntryKey(raw, true)
		require.NoError(t, err)
		require.Equal(t, uint32(3), dbi)
		got = append(got, string(k)+"="+string(v))
	}
	require.Equal(t, []string{"a=", "a=\x00", "a=zz", "ab=", "b=1", "b=\xff"}, got)
}

func TestUpperBound(t *testing.T) {
	prefix := KeyPrefix(1, []byte("key"))
	bound := UpperBound(prefix)

	for i := 0; i < 1000; i++ {
		v := []byte(gofakeit.LetterN(8))
		v = append(v, 0xff, 0xff)
		require.Less(t, bytes.Compare(EntryKey(1, []byte("key"), v), bound), 0)
	}
	require.Greater(t, bytes.Compare(EntryKey(1, []byte("key\x00"), nil), bound), 0)
	require.Less(t, bytes.Compare(UpperBound(DBPrefix(1)), DBPrefix(2)), 0)
}

func TestDecodeEntryKeyMalformed(t *testing.T) {
	_, _, _, err := DecodeEntryKey(MetaKey(), false)
	require.ErrorIs(t, err, ErrMalformedKey)

	_, _, _, err = DecodeEntryKey(EntryKey(1, []byte("a"), []byte("b")), false)
	require.ErrorIs(t, err, ErrMalformedKey)
}

func TestValueMarker(t *testing.T) {
	v, ok := DecodeValue(EncodeValue(nil))
	require.True(t, ok)
	require.NotNil(t, v)
	require.Len(t, v, 0)

	_, ok = DecodeValue(nil)
	require.False(t, ok)

	data := []byte(gofakeit.Sentence(5))
	v, ok = DecodeValue(EncodeValue(data))
	require.True(t, ok)
	require.Equal(t, data, v)
}

package internal

import (
	"errors"

	"github.com/google/orderedcode"
)

// Backend keyspace layout:
//
//	m                                  catalog record
//	d <dbi> <key>                      plain database entry
//	d <dbi> <key> <value>              duplicate-sorted database entry
//
// Every component after the leading byte is orderedcode encoded, so entries
// of one database sort by key and then by duplicate value, and the encoding
// of a key is never a prefix of the encoding of another key.
const (
	dataTag = 'd'
	metaTag = 'm'
)

var ErrMalformedKey = errors.New("internal: malformed entry key")

func MetaKey() []byte {
	return []byte{metaTag}
}

func DBPrefix(dbi uint32) []byte {
	buf, _ := orderedcode.Append([]byte{dataTag}, uint64(dbi))
	return buf
}

func KeyPrefix(dbi uint32, key []byte) []byte {
	buf, _ := orderedcode.Append(DBPrefix(dbi), string(key))
	return buf
}

// EntryKey encodes the backend key of an entry. dup is appended only for
// duplicate-sorted databases and must be nil otherwise.
func EntryKey(dbi uint32, key, dup []byte) []byte {
	buf := KeyPrefix(dbi, key)
	if dup != nil {
		buf, _ = orderedcode.Append(buf, string(dup))
	}
	return buf
}

// UpperBound returns a key greater than every key starting with prefix.
func UpperBound(prefix []byte) []byte {
	buf := make([]byte, len(prefix), len(prefix)+2)
	copy(buf, prefix)
	buf, _ = orderedcode.Append(buf, orderedcode.Infinity)
	return buf
}

// DecodeEntryKey splits a backend key produced by EntryKey.
func DecodeEntryKey(raw []byte, dup bool) (dbi uint32, key, value []byte, err error) {
	if len(raw) == 0 || raw[0] != dataTag {
		return 0, nil, nil, ErrMalformedKey
	}

	var (
		id   uint64
		k, v string
	)

	rest, err := orderedcode.Parse(string(raw[1:]), &id, &k)
	if err != nil {
		return 0, nil, nil, err
	}
	if dup {
		rest, err = orderedcode.Parse(rest, &v)
		if err != nil {
			return 0, nil, nil, err
		}
		value = []byte(v)
	}
	if rest != "" {
		return 0, nil, nil, ErrMalformedKey
	}
	return uint32(id), []byte(k), value, nil
}

// Stored values carry a one byte marker so that an empty value is never
// confused with a missing one, whatever the backend.
const valueMarker = 0x01

func EncodeValue(v []byte) []byte {
	buf := make([]byte, len(v)+1)
	buf[0] = valueMarker
	copy(buf[1:], v)
	return buf
}

// DecodeValue strips the marker. The returned slice aliases raw.
func DecodeValue(raw []byte) ([]byte, bool) {
	if len(raw) == 0 || raw[0] != valueMarker {
		return nil, false
	}
	return raw[1:], true
}

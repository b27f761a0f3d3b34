package lmkv

import (
	"strconv"

	"github.com/ostafen/lmkv/native"
)

// GetOp selects how Cursor.Get positions a cursor. Its value is the code
// understood by the engine.
type GetOp int

const (
	// First moves to the first key.
	First GetOp = native.OpFirst
	// FirstDup moves to the first value of the current key. DupSort only.
	FirstDup GetOp = native.OpFirstDup
	// GetBoth positions at the given key/value pair. DupSort only.
	GetBoth GetOp = native.OpGetBoth
	// GetBothRange positions at the given key and its smallest value >= the
	// given one. DupSort only.
	GetBothRange GetOp = native.OpGetBothRange
	// GetCurrent returns the current pair without moving.
	GetCurrent GetOp = native.OpGetCurrent
	// GetMultiple returns the current key and up to a page of its values,
	// concatenated. DupFixed only.
	GetMultiple GetOp = native.OpGetMultiple
	// Last moves to the last key.
	Last GetOp = native.OpLast
	// LastDup moves to the last value of the current key. DupSort only.
	LastDup GetOp = native.OpLastDup
	// Next moves to the next value, of the same key or the next one.
	Next GetOp = native.OpNext
	// NextDup moves to the next value of the current key. DupSort only.
	NextDup GetOp = native.OpNextDup
	// NextMultiple continues a GetMultiple read. DupFixed only.
	NextMultiple GetOp = native.OpNextMultiple
	// NextNoDup moves to the first value of the next key.
	NextNoDup GetOp = native.OpNextNoDup
	// Prev moves to the previous value.
	Prev GetOp = native.OpPrev
	// PrevDup moves to the previous value of the current key. DupSort only.
	PrevDup GetOp = native.OpPrevDup
	// PrevNoDup moves to the last value of the previous key.
	PrevNoDup GetOp = native.OpPrevNoDup
)

var getOpNames = [...]string{
	First:        "FIRST",
	FirstDup:     "FIRST_DUP",
	GetBoth:      "GET_BOTH",
	GetBothRange: "GET_BOTH_RANGE",
	GetCurrent:   "GET_CURRENT",
	GetMultiple:  "GET_MULTIPLE",
	Last:         "LAST",
	LastDup:      "LAST_DUP",
	Next:         "NEXT",
	NextDup:      "NEXT_DUP",
	NextMultiple: "NEXT_MULTIPLE",
	NextNoDup:    "NEXT_NODUP",
	Prev:         "PREV",
	PrevDup:      "PREV_DUP",
	PrevNoDup:    "PREV_NODUP",
}

// GetOps returns every GetOp, in code order.
func GetOps() []GetOp {
	ops := make([]GetOp, 0, len(getOpNames))
	for op := range getOpNames {
		ops = append(ops, GetOp(op))
	}
	return ops
}

// Value returns the engine code of op.
func (op GetOp) Value() int {
	return int(op)
}

// Valid reports whether op is one of the declared operations.
func (op GetOp) Valid() bool {
	return op >= 0 && int(op) < len(getOpNames)
}

func (op GetOp) String() string {
	if !op.Valid() {
		return "GetOp(" + strconv.Itoa(int(op)) + ")"
	}
	return getOpNames[op]
}

// SeekOp selects how Cursor.Seek looks a key up.
type SeekOp int

const (
	// SeekKey positions at the given key.
	SeekKey SeekOp = native.OpSetKey
	// SeekRange positions at the first key >= the given one.
	SeekRange SeekOp = native.OpSetRange
)

// Value returns the engine code of op.
func (op SeekOp) Value() int {
	return int(op)
}

// Valid reports whether op is one of the declared seek operations.
func (op SeekOp) Valid() bool {
	return op == SeekKey || op == SeekRange
}

func (op SeekOp) String() string {
	switch op {
	case SeekKey:
		return "SET_KEY"
	case SeekRange:
		return "SET_RANGE"
	}
	return "SeekOp(" + strconv.Itoa(int(op)) + ")"
}

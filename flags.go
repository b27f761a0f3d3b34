package lmkv

import "github.com/ostafen/lmkv/native"

// Database flags, for Txn.OpenDB.
const (
	// DupSort allows several sorted values per key.
	DupSort uint = native.DBDupSort
	// DupFixed marks every value of a DupSort database as having the same
	// size, enabling GetMultiple.
	DupFixed uint = native.DBDupFixed
	// Create creates the database if it is missing.
	Create uint = native.DBCreate
)

// Put flags, for Txn.Put and Cursor.Put.
const (
	NoOverwrite uint = native.PutNoOverwrite
	NoDupData   uint = native.PutNoDupData
	Current     uint = native.PutCurrent
	Append      uint = native.PutAppend
	AppendDup   uint = native.PutAppendDup
)

// MaxKeySize is the largest key, and DupSort value, accepted.
const MaxKeySize = native.MaxKeySize

// DBI identifies a database of an environment.
type DBI uint32

// MainDBI is the unnamed database, always present.
const MainDBI = DBI(native.MainDBI)

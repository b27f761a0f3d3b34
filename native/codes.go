package native

import "strconv"

// Status codes. Values follow LMDB so callers used to mdb_strerror feel at
// home; 0 is success.
const (
	Success = 0

	KeyExist        = -30799
	NotFound        = -30798
	PageNotFound    = -30797
	Corrupted       = -30796
	Panic           = -30795
	VersionMismatch = -30794
	Invalid         = -30793
	MapFull         = -30792
	DBsFull         = -30791
	ReadersFull     = -30790
	TLSFull         = -30789
	TxnFull         = -30788
	CursorFull      = -30787
	PageFull        = -30786
	MapResized      = -30785
	Incompatible    = -30784
	BadRSlot        = -30783
	BadTxn          = -30782
	BadValSize      = -30781
	BadDBI          = -30780

	EIO    = 5
	ENOMEM = 12
	EACCES = 13
	EINVAL = 22
)

var messages = map[int]string{
	Success:         "Successful return: 0",
	KeyExist:        "MDB_KEYEXIST: Key/data pair already exists",
	NotFound:        "MDB_NOTFOUND: No matching key/data pair found",
	PageNotFound:    "MDB_PAGE_NOTFOUND: Requested page not found",
	Corrupted:       "MDB_CORRUPTED: Located page was wrong type",
	Panic:           "MDB_PANIC: Update of meta page failed or environment had fatal error",
	VersionMismatch: "MDB_VERSION_MISMATCH: Database environment version mismatch",
	Invalid:         "MDB_INVALID: File is not an LMDB file",
	MapFull:         "MDB_MAP_FULL: Environment mapsize limit reached",
	DBsFull:         "MDB_DBS_FULL: Environment maxdbs limit reached",
	ReadersFull:     "MDB_READERS_FULL: Environment maxreaders limit reached",
	TLSFull:         "MDB_TLS_FULL: Thread-local storage keys full - too many environments open",
	TxnFull:         "MDB_TXN_FULL: Transaction has too many dirty pages - transaction too big",
	CursorFull:      "MDB_CURSOR_FULL: Internal error - cursor stack limit reached",
	PageFull:        "MDB_PAGE_FULL: Internal error - page has no more space",
	MapResized:      "MDB_MAP_RESIZED: Database contents grew beyond environment mapsize",
	Incompatible:    "MDB_INCOMPATIBLE: Operation and DB incompatible, or DB flags changed",
	BadRSlot:        "MDB_BAD_RSLOT: Invalid reuse of reader locktable slot",
	BadTxn:          "MDB_BAD_TXN: Transaction must abort, has a child, or is invalid",
	BadValSize:      "MDB_BAD_VALSIZE: Unsupported size of key/DB name/data, or wrong DUPFIXED size",
	BadDBI:          "MDB_BAD_DBI: The specified DBI handle was closed/changed unexpectedly",
	EIO:             "Input/output error",
	ENOMEM:          "Cannot allocate memory",
	EACCES:          "Permission denied",
	EINVAL:          "Invalid argument",
}

// Strerror describes a status code.
func Strerror(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return "unknown error code " + strconv.Itoa(code)
}

// Cursor operation codes, MDB_cursor_op numbering.
const (
	OpFirst = iota
	OpFirstDup
	OpGetBoth
	OpGetBothRange
	OpGetCurrent
	OpGetMultiple
	OpLast
	OpLastDup
	OpNext
	OpNextDup
	OpNextMultiple
	OpNextNoDup
	OpPrev
	OpPrevDup
	OpPrevNoDup
	OpSet
	OpSetKey
	OpSetRange
)

// Transaction flags.
const (
	TxnRdOnly = 0x20000
)

// Database flags.
const (
	DBReverseKey = 0x02
	DBDupSort    = 0x04
	DBIntegerKey = 0x08
	DBDupFixed   = 0x10
	DBCreate     = 0x40000

	dbPersistentFlags = DBReverseKey | DBDupSort | DBIntegerKey | DBDupFixed
)

// Write flags.
const (
	PutNoOverwrite = 0x10
	PutNoDupData   = 0x20
	PutCurrent     = 0x40
	PutAppend      = 0x20000
	PutAppendDup   = 0x40000
)

// MaxKeySize is the largest key accepted by Put.
const MaxKeySize = 511

// MultiplePageSize bounds the bytes returned by OpGetMultiple and
// OpNextMultiple.
const MultiplePageSize = 4096

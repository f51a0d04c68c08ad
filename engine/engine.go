// Package engine defines the storage engine contract consumed by bufdb.
//
// An engine is a sorted, memory-mapped (or memory-resident) key/value store
// with transactions, named tables and optional duplicate-key (DUPSORT)
// tables. Cursor operations, put flags and error numbers follow the MDBX
// conventions so that adapters for MDBX itself stay thin.
//
// Byte slices returned by an engine are only valid until the next write in
// the same transaction, or until the transaction ends, whichever comes first.
package engine

// DBI is a table handle. Handles are environment-wide: a handle obtained in
// one transaction stays valid in later transactions until the table is
// dropped.
type DBI uint32

// Env is an open storage environment.
type Env interface {
	// BeginTxn starts a transaction. Engines allow one write transaction at a
	// time; BeginTxn(false) blocks until the previous writer finishes.
	BeginTxn(readOnly bool) (Txn, error)

	// Close releases the environment. All transactions must be finished.
	Close() error
}

// Txn is a transaction. A Txn must be used by one goroutine at a time.
type Txn interface {
	ReadOnly() bool

	// OpenTable opens (with Create, creates) a named table. An empty name
	// denotes the main table.
	OpenTable(name string, flags uint) (DBI, error)

	// Flags returns the table flags the table was created with.
	Flags(dbi DBI) (uint, error)

	Get(dbi DBI, key []byte) ([]byte, error)
	Put(dbi DBI, key, val []byte, flags uint) error

	// Del deletes key. For DUPSORT tables a non-nil val deletes only that
	// pair; a nil val deletes every duplicate of key.
	Del(dbi DBI, key, val []byte) error

	// Drop empties the table; with del it also deletes the table and
	// invalidates the handle.
	Drop(dbi DBI, del bool) error

	Stat(dbi DBI) (*Stat, error)
	OpenCursor(dbi DBI) (Cursor, error)

	Commit() error
	Abort()
}

// Cursor walks a table in key order (then value order for DUPSORT tables).
//
// A move that fails with NotFound leaves the cursor where it was. After Del,
// Next yields the successor and Prev the predecessor of the deleted pair.
type Cursor interface {
	Get(key, val []byte, op uint) ([]byte, []byte, error)
	Put(key, val []byte, flags uint) error
	Del(flags uint) error

	// Count returns the number of duplicates of the current key.
	Count() (uint64, error)

	Close()
}

// Stat is a snapshot of table statistics.
type Stat struct {
	PSize         uint   // Page size
	Depth         uint   // B-tree depth
	BranchPages   uint64 // Number of internal (non-leaf) pages
	LeafPages     uint64 // Number of leaf pages
	OverflowPages uint64 // Number of overflow pages
	Entries       uint64 // Number of data items
}

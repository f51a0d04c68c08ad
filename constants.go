package bufdb

import "github.com/Giulio2002/bufdb/engine"

// Mode selects whether a cursor may modify its table.
type Mode uint8

const (
	// Reader cursors expose entries in place and reject every write.
	Reader Mode = iota
	// Writer cursors stage, insert and delete entries.
	Writer
)

func (m Mode) String() string {
	if m == Writer {
		return "writer"
	}
	return "reader"
}

// Table flags (untyped uint constants, engine compatible)
const (
	// DBDefaults opens a plain table with one value per key
	DBDefaults uint = 0

	// DupSort allows multiple values per key (sorted)
	DupSort = engine.DupSort
)

// Primitive widths in bytes
const (
	ByteSize    = 1
	Int32Size   = 4
	Int64Size   = 8
	Float32Size = 4
	Float64Size = 8
)

// Environment defaults
const (
	// DefaultEngine is used when the configuration names none
	DefaultEngine = "memory"

	// DefaultMapSize is the default upper bound of the memory map (1GB)
	DefaultMapSize = 1 << 30

	// DefaultMaxTables is the default number of named tables
	DefaultMaxTables = 16
)

// stagingInitialSize is the first allocation of a cursor's own staging
// buffers; they double as needed.
const stagingInitialSize = 64

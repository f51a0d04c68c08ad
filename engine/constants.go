package engine

// Cursor operations (MDBX numbering).
const (
	// First positions at the first key
	First uint = iota
	// FirstDup positions at the first duplicate of current key
	FirstDup
	// GetBoth positions at exact key-value pair
	GetBoth
	// GetBothRange positions at key with value >= specified
	GetBothRange
	// GetCurrent returns current key-value
	GetCurrent
	getMultiple
	// Last positions at the last key
	Last
	// LastDup positions at the last duplicate of current key
	LastDup
	// Next moves to the next key-value
	Next
	// NextDup moves to the next duplicate of current key
	NextDup
	nextMultiple
	// NextNoDup moves to the first value of next key
	NextNoDup
	// Prev moves to the previous key-value
	Prev
	// PrevDup moves to the previous duplicate of current key
	PrevDup
	// PrevNoDup moves to the last value of previous key
	PrevNoDup
	// Set positions at specified key
	Set
	setKey
	// SetRange positions at first key >= specified
	SetRange
)

// Table flags.
const (
	// DBDefaults uses default comparison and features
	DBDefaults uint = 0

	// DupSort allows multiple values per key (sorted)
	DupSort uint = 0x04

	// Create creates the table if it doesn't exist
	Create uint = 0x40000
)

// Put flags.
const (
	// Upsert is the default insert-or-update mode
	Upsert uint = 0

	// NoOverwrite returns KeyExist if key exists
	NoOverwrite uint = 0x10

	// NoDupData returns KeyExist if key-value pair exists (DUPSORT)
	NoDupData uint = 0x20

	// Current overwrites current item (cursor put)
	Current uint = 0x40

	// Append assumes data is being appended
	Append uint = 0x20000

	// AppendDup assumes duplicate data is being appended
	AppendDup uint = 0x40000
)

// OpName returns a printable name for a cursor operation.
func OpName(op uint) string {
	switch op {
	case First:
		return "first"
	case FirstDup:
		return "first_dup"
	case GetBoth:
		return "get_both"
	case GetBothRange:
		return "get_both_range"
	case GetCurrent:
		return "get_current"
	case Last:
		return "last"
	case LastDup:
		return "last_dup"
	case Next:
		return "next"
	case NextDup:
		return "next_dup"
	case NextNoDup:
		return "next_nodup"
	case Prev:
		return "prev"
	case PrevDup:
		return "prev_dup"
	case PrevNoDup:
		return "prev_nodup"
	case Set:
		return "set"
	case SetRange:
		return "set_range"
	}
	return "unknown"
}
